package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abrezinsky/paredao/internal/logger"
)

func newTestKeys() (*keyActions, *[]string, *int) {
	var opened []string
	quits := 0
	k := &keyActions{
		votingURL:    "http://192.168.0.10:8080/voting",
		dashboardURL: "http://localhost:8080/",
		log:          logger.NewWithLevel(logger.ParseLevel("info")),
		quit:         func() { quits++ },
		open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
	}
	return k, &opened, &quits
}

func TestKeyActions_OpenPages(t *testing.T) {
	tests := []struct {
		key  byte
		want string
	}{
		{'v', "http://192.168.0.10:8080/voting"},
		{'V', "http://192.168.0.10:8080/voting"},
		{'d', "http://localhost:8080/"},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			k, opened, _ := newTestKeys()

			if k.handle(tt.key) {
				t.Fatal("expected the listener to keep running")
			}
			if len(*opened) != 1 || (*opened)[0] != tt.want {
				t.Errorf("expected %s to be opened, got %v", tt.want, *opened)
			}
		})
	}
}

func TestKeyActions_OpenError(t *testing.T) {
	k, _, _ := newTestKeys()
	k.open = func(string) error { return errors.New("no browser") }

	if k.handle('v') {
		t.Error("a browser error must not stop the listener")
	}
}

func TestKeyActions_ToggleHTTPLogging(t *testing.T) {
	k, _, _ := newTestKeys()
	before := k.log.IsHTTPLoggingEnabled()

	k.handle('h')
	if k.log.IsHTTPLoggingEnabled() == before {
		t.Error("expected HTTP logging to be toggled")
	}
	k.handle('h')
	if k.log.IsHTTPLoggingEnabled() != before {
		t.Error("expected HTTP logging to be toggled back")
	}
}

func TestKeyActions_CycleLogLevel(t *testing.T) {
	k, _, _ := newTestKeys()
	want := []string{"WARN", "ERROR", "DEBUG", "INFO"}

	for _, level := range want {
		k.handle('l')
		if got := k.log.GetLevel().String(); got != level {
			t.Fatalf("expected %s, got %s", level, got)
		}
	}
}

func TestKeyActions_Quit(t *testing.T) {
	for _, key := range []byte{'q', 'Q', 0x03} {
		k, _, quits := newTestKeys()

		if !k.handle(key) {
			t.Errorf("expected %q to stop the listener", key)
		}
		if *quits != 1 {
			t.Errorf("expected quit to be called once for %q, got %d", key, *quits)
		}
	}
}

func TestReadKeysFrom(t *testing.T) {
	k, opened, quits := newTestKeys()

	readKeysFrom(context.Background(), strings.NewReader("xvdqv"), k)

	if len(*opened) != 2 {
		t.Errorf("expected reading to stop at q, opened %v", *opened)
	}
	if *quits != 1 {
		t.Errorf("expected one quit, got %d", *quits)
	}
}

func TestReadKeysFrom_EOF(t *testing.T) {
	k, _, quits := newTestKeys()

	readKeysFrom(context.Background(), strings.NewReader("?"), k)

	if *quits != 0 {
		t.Error("EOF must not quit the server")
	}
}

func TestReadKeysFrom_CancelledContext(t *testing.T) {
	k, opened, _ := newTestKeys()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	readKeysFrom(ctx, strings.NewReader("v"), k)

	if len(*opened) != 0 {
		t.Error("expected no keys to be handled after cancel")
	}
}
