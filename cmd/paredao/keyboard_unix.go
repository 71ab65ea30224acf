//go:build linux
// +build linux

package main

import (
	"context"
	"os"
	"syscall"
	"unsafe"
)

func ioctlTermios(fd int, req uintptr, state *syscall.Termios) bool {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(state)))
	return errno == 0
}

// listenForKeyboard puts the terminal in raw mode and dispatches single key
// presses until quit is pressed or ctx is done
func listenForKeyboard(ctx context.Context, keys *keyActions) {
	fd := int(os.Stdin.Fd())
	var oldState syscall.Termios
	if !ioctlTermios(fd, syscall.TCGETS, &oldState) {
		// not a terminal
		return
	}

	// Disable canonical mode and echo; keep OPOST so \n still works
	newState := oldState
	newState.Lflag &^= syscall.ICANON | syscall.ECHO
	newState.Cc[syscall.VMIN] = 1
	newState.Cc[syscall.VTIME] = 0
	if !ioctlTermios(fd, syscall.TCSETS, &newState) {
		return
	}

	restore := func() { ioctlTermios(fd, syscall.TCSETS, &oldState) }
	go func() {
		<-ctx.Done()
		restore()
	}()
	defer restore()

	readKeys(ctx, keys)
}
