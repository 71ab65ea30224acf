//go:build !linux && !darwin && !windows
// +build !linux,!darwin,!windows

package main

import "context"

func listenForKeyboard(ctx context.Context, keys *keyActions) {}
