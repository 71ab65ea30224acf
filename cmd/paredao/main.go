package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abrezinsky/paredao/internal/app"
	"github.com/abrezinsky/paredao/internal/config"
	"github.com/abrezinsky/paredao/internal/logger"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	blue      = "\033[34m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

const boxWidth = 62

// showStartupAnimation displays the Paredão logo, then a short tally race
// between two participants
func showStartupAnimation(skipTally bool) {
	border := strings.Repeat("═", boxWidth)

	logo := []string{
		"     ____                    _      _____                ",
		"    |  _ \\ __ _ _ __ ___  __| | __ _|  _  |               ",
		"    | |_) / _` | '__/ _ \\/ _` |/ _` | | | |               ",
		"    |  __/ (_| | | |  __/ (_| | (_| | |_| |               ",
		"    |_|   \\__,_|_|  \\___|\\__,_|\\__,_|_____|  voting       ",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Printf("  %s║%s%-*s%s║%s\n", cyan, yellow, boxWidth, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)

	if skipTally {
		fmt.Print("\n")
		return
	}

	fmt.Printf(moveUp, 1)
	fmt.Printf("%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	bars := []struct {
		label string
		color string
	}{
		{"A", red},
		{"B", blue},
	}

	// "║ A ████ 42% ║"
	barLen := boxWidth - 9
	for range bars {
		fmt.Printf("  %s║%s║%s\n", cyan, strings.Repeat(" ", boxWidth), reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)
	fmt.Printf(moveUp, len(bars)+1)

	votes := make([]int, len(bars))
	const frames = 20
	for frame := 0; frame < frames; frame++ {
		votes[rand.Intn(len(votes))] += 1 + rand.Intn(3)
		total := 0
		for _, v := range votes {
			total += v
		}

		for i, b := range bars {
			pct := votes[i] * 100 / total
			filled := pct * barLen / 100
			fmt.Printf("%s  %s║ %s%s %s%s%s %3d%%%s ║%s\n", clearLine, cyan, reset, b.label,
				b.color, strings.Repeat("█", filled), strings.Repeat(" ", barLen-filled), pct, cyan, reset)
		}
		fmt.Printf("%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)

		if frame < frames-1 {
			fmt.Printf(moveUp, len(bars)+1)
		}
		time.Sleep(80 * time.Millisecond)
	}
	fmt.Print("\n")
}

var (
	version = "dev"
)

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog *logger.SlogLogger) {
	var next string
	switch appLog.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sv%s      - Open voting page in browser\n", cyan, reset)
	fmt.Printf("    %sd%s      - Open dashboard in browser\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	logLevel := flag.String("loglevel", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	noAnimate := flag.Bool("noanimate", false, "Show logo only, skip tally animation")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Paredão - elimination voting server

Usage:
  paredao [options]

Settings are read from the environment and an optional .env file:
  SERVER_URL         Paredão API base URL (required)
  VERIFY_SITE_KEY    Captcha site key sent to the browser
  VERIFY_SECRET_KEY  Captcha secret used to verify tokens
  PUBLIC_URL         Address voters reach this server at
  PORT               HTTP server port (default 8080)
  LOG_LEVEL          debug, info, warn, error (default "info")
  LOG_FORMAT         text or json (default "text")
  DEFAULT_LOCALE     Notice language without Accept-Language (default "pt-BR")
  CORS_ORIGINS       Comma separated origins allowed to call the server
  SECURE_COOKIES     Mark the session cookie Secure

Options:
  -port int      HTTP server port
  -loglevel str  Log level: debug, info, warn, error
  -noanimate     Show logo only, skip tally animation
  -nokeyboard    Disable keyboard shortcuts
  -version       Show version and exit
  -help          Show this help message

Keyboard Shortcuts (when enabled):
  v              Open voting page in browser
  d              Open dashboard in browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  SERVER_URL=http://localhost:3333 paredao
  paredao -port 9000 -loglevel debug
  paredao -nokeyboard                # Run under a process manager

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("paredao %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	showStartupAnimation(*noAnimate)

	appLog := logger.NewWithOptions(os.Stdout, logger.ParseFormat(cfg.LogFormat), logger.ParseLevel(cfg.LogLevel))

	a, err := app.New(appLog, *cfg, nil)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noKeyboard {
		printKeyboardHelp()
		keys := &keyActions{
			votingURL:    a.PublicURL() + "/voting",
			dashboardURL: fmt.Sprintf("http://localhost:%d/", cfg.Port),
			log:          appLog,
			quit:         stop,
		}
		go listenForKeyboard(ctx, keys)
	} else {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	if err := a.Run(ctx, cfg.Addr()); err != nil {
		log.Fatal(err)
	}
}
