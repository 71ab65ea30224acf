// Package mutation runs write operations with optimistic cache updates.
package mutation

import (
	"context"
	"sync"

	"github.com/abrezinsky/paredao/internal/logger"
)

// Status of a mutation's most recent run
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the status and error of the most recent run
type State struct {
	Status Status
	Err    error
}

// Mutation describes a write of variables V producing R. C is the context
// OnMutate hands to the later callbacks, typically a cache snapshot.
//
// Run order: OnMutate, Fn, then OnSuccess or OnError, then OnSettled.
// Fn is not cancellable once started; it keeps running when the caller's
// context is cancelled.
type Mutation[V, R, C any] struct {
	Name      string
	Fn        func(ctx context.Context, vars V) (R, error)
	OnMutate  func(ctx context.Context, vars V) (C, error)
	OnSuccess func(ctx context.Context, result R, vars V, mctx C)
	OnError   func(ctx context.Context, err error, vars V, mctx C)
	OnSettled func(ctx context.Context, result R, err error, vars V, mctx C)
	Log       logger.Logger

	mu    sync.Mutex
	state State
}

// State returns the status of the most recent run
func (m *Mutation[V, R, C]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status == "" {
		return State{Status: StatusIdle}
	}
	return m.state
}

func (m *Mutation[V, R, C]) setState(status Status, err error) {
	m.mu.Lock()
	m.state = State{Status: status, Err: err}
	m.mu.Unlock()
}

func (m *Mutation[V, R, C]) logger() logger.Logger {
	if m.Log == nil {
		return logger.Noop{}
	}
	return m.Log
}

// Run executes the mutation and returns Fn's result
func (m *Mutation[V, R, C]) Run(ctx context.Context, vars V) (R, error) {
	ctx = context.WithoutCancel(ctx)
	log := m.logger()
	m.setState(StatusPending, nil)

	var (
		mctx   C
		result R
		err    error
	)
	if m.OnMutate != nil {
		mctx, err = m.OnMutate(ctx, vars)
	}
	if err == nil {
		log.Debug("mutation started", "mutation", m.Name)
		result, err = m.Fn(ctx, vars)
	}

	if err != nil {
		log.Info("mutation failed", "mutation", m.Name, "error", err)
		if m.OnError != nil {
			m.OnError(ctx, err, vars, mctx)
		}
		m.setState(StatusError, err)
	} else {
		log.Debug("mutation succeeded", "mutation", m.Name)
		if m.OnSuccess != nil {
			m.OnSuccess(ctx, result, vars, mctx)
		}
		m.setState(StatusSuccess, nil)
	}

	if m.OnSettled != nil {
		m.OnSettled(ctx, result, err, vars, mctx)
	}
	return result, err
}
