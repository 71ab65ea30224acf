//go:build windows
// +build windows

package main

import "context"

// listenForKeyboard reads line-buffered input; raw console mode is not set up
// on Windows so each shortcut needs Enter
func listenForKeyboard(ctx context.Context, keys *keyActions) {
	readKeys(ctx, keys)
}
