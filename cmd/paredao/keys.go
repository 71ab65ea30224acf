package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abrezinsky/paredao/internal/browser"
	"github.com/abrezinsky/paredao/internal/logger"
)

// keyActions runs the shortcut bound to a key pressed in the terminal
type keyActions struct {
	votingURL    string
	dashboardURL string
	log          *logger.SlogLogger
	quit         func()
	open         func(url string) error
}

// handle runs the action for key and reports whether the listener should stop
func (k *keyActions) handle(key byte) bool {
	open := k.open
	if open == nil {
		open = browser.Open
	}

	switch strings.ToLower(string(key)) {
	case "v":
		fmt.Printf("%sOpening voting page in browser...%s\n", cyan, reset)
		if err := open(k.votingURL); err != nil {
			fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "d":
		fmt.Printf("%sOpening dashboard in browser...%s\n", cyan, reset)
		if err := open(k.dashboardURL); err != nil {
			fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if k.log.IsHTTPLoggingEnabled() {
			k.log.DisableHTTPLogging()
			fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			k.log.EnableHTTPLogging()
			fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		cycleLogLevel(k.log)
	case "?":
		printKeyboardHelp()
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		fmt.Printf("%sShutting down server...%s\n", yellow, reset)
		k.quit()
		return true
	}
	return false
}

// readKeys feeds bytes from stdin to keys until a quit key, EOF or ctx is done
func readKeys(ctx context.Context, keys *keyActions) {
	readKeysFrom(ctx, os.Stdin, keys)
}

func readKeysFrom(ctx context.Context, r io.Reader, keys *keyActions) {
	buf := make([]byte, 1)
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		if n == 1 && keys.handle(buf[0]) {
			return
		}
		if err != nil {
			return
		}
	}
}
