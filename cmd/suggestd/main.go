/*
Package main implements suggestd, the suggestion engine server and admin
shell.

suggestd composes the Prefix Index, Ranking Composer, Trending Tracker,
History Tracker, Filter Gate, Aggregator, and Suggestion Service (see
pkg/engine) behind an HTTP transport (internal/httpapi), or, with -admin,
an interactive line-oriented admin shell (internal/cli) for operating the
engine without standing up the HTTP listener.

# Server Mode

The default mode serves the Suggestion API and Admin API over HTTP,
durably persisting phrase counts and query logs to a BadgerDB-backed Log
Store at -data.

# Admin Shell Mode

-admin drops into an interactive shell for rebuild/filter/status
commands, useful for operating or debugging a running dataset without a
separate HTTP client.

# Config

Runtime configuration is managed via a config.toml file; a default
configuration is created automatically if one does not exist.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/arqlane/suggestd/internal/cli"
	"github.com/arqlane/suggestd/internal/httpapi"
	"github.com/arqlane/suggestd/internal/logger"
	"github.com/arqlane/suggestd/pkg/aggregator"
	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/engine"
	"github.com/arqlane/suggestd/pkg/logstore"
)

const (
	Version = "0.1.0-beta"
	AppName = "suggestd"
	gh      = "https://github.com/arqlane/suggestd"
)

// sigHandler notifies ctxCancel on SIGINT/SIGTERM so the caller can
// drain the Aggregator's buffered batch before exiting.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nShutting down...\n")
		cancel()
	}()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigHandler(cancel)

	configFile := flag.String("config", "config.toml", "Path to config.toml file")
	dataDir := flag.String("data", "data/", "Directory containing the BadgerDB log store")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	adminMode := flag.Bool("admin", false, "Run the interactive admin shell instead of the HTTP server")
	replay := flag.Bool("replay", false, "Replay the overflow log into the log store, then exit")
	showVersion := flag.Bool("version", false, "Show current version")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}
	db, err := badger.Open(badger.DefaultOptions(*dataDir).WithLogger(nil))
	if err != nil {
		log.Fatalf("failed to open log store: %v", err)
	}
	defer db.Close()
	store := logstore.NewBadger(db)

	if *replay {
		n, err := aggregator.ReplayOverflow(ctx, cfg.Aggregator.OverflowLogPath, store)
		if err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		log.Infof("replayed %d overflow batches", n)
		os.Exit(0)
	}

	eng := engine.New(cfg, store, logger.New("aggregator"))

	if _, err := eng.Rebuild(ctx); err != nil {
		log.Warnf("initial rebuild failed, starting with an empty index: %v", err)
	}

	go eng.Aggregator().Run(ctx)

	if *adminMode {
		shell := cli.NewAdminShell(eng)
		if err := shell.Start(); err != nil {
			log.Infof("admin shell exited: %v", err)
		}
		shutdown(eng)
		return
	}

	handler := httpapi.NewRouter(eng, cfg.Server)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	showStartupInfo(*dataDir, cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
	shutdown(eng)
}

// shutdown flushes the Aggregator's buffered batch one last time and
// stops its flush loop.
func shutdown(eng *engine.Engine) {
	eng.Aggregator().Stop()
	if err := eng.Flush(context.Background()); err != nil {
		log.Warnf("final flush failed: %v", err)
	}
}

func printVersion() {
	vlog := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	vlog.SetStyles(styles)

	vlog.Print("")
	vlog.Print("[suggestd] sub-100ms prefix completion engine")
	vlog.Print("", "version", Version)
	vlog.Print("")
	vlog.Print("use --help to see available options")
	vlog.Print("")
	vlog.Print("Find out more at", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dataDir, addr string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" suggestd ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("listening on: %s", addr)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
