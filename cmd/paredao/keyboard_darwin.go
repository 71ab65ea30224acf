//go:build darwin
// +build darwin

package main

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

// listenForKeyboard puts the terminal in raw mode and dispatches single key
// presses until quit is pressed or ctx is done
func listenForKeyboard(ctx context.Context, keys *keyActions) {
	fd := int(os.Stdin.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		// not a terminal
		return
	}

	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TIOCSETA, &newState); err != nil {
		return
	}

	restore := func() { _ = unix.IoctlSetTermios(fd, unix.TIOCSETA, oldState) }
	go func() {
		<-ctx.Done()
		restore()
	}()
	defer restore()

	readKeys(ctx, keys)
}
