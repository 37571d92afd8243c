package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jask/equipviz/internal/config"
	"github.com/jask/equipviz/internal/gateway"
	"github.com/jask/equipviz/internal/logger"
	"github.com/jask/equipviz/internal/reports"
	"github.com/jask/equipviz/internal/secrets"
	"github.com/jask/equipviz/internal/session"
	"github.com/jask/equipviz/internal/telemetry"
	"github.com/jask/equipviz/internal/tui"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "config file (default $EQUIPVIZ_CONFIG or ~/.config/equipviz/config.toml)")
	initConfig := flag.Bool("init-config", false, "write the effective config to the config file and exit")
	setPassword := flag.Bool("set-password", false, "read the backend password from stdin, store it in the credential file and exit")
	forgetPassword := flag.Bool("forget-password", false, "remove the stored backend password for the configured user and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *configPath != "" {
		if err := os.Setenv("EQUIPVIZ_CONFIG", *configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *initConfig {
		if err := config.Save(cfg); err != nil {
			log.Fatalf("config: %v", err)
		}
		fmt.Printf("wrote %s\n", config.Path())
		return
	}

	store, err := secrets.Open("")
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}
	if *setPassword {
		if err := storePassword(store, cfg, os.Stdin); err != nil {
			log.Fatalf("secrets: %v", err)
		}
		fmt.Printf("stored password for %s at %s\n", cfg.Backend.Username, cfg.Backend.BaseURL)
		return
	}
	if *forgetPassword {
		if err := store.Delete(cfg.Backend.BaseURL, cfg.Backend.Username); err != nil {
			log.Fatalf("secrets: %v", err)
		}
		fmt.Printf("removed stored password for %s at %s\n", cfg.Backend.Username, cfg.Backend.BaseURL)
		return
	}
	cfg.Backend.Password = resolvePassword(cfg, store)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := logger.New(cfg.Log.Mode, cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer lg.Sync()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, version, lg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	flushTelemetry := sync.OnceFunc(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			lg.Warn("telemetry shutdown failed", "error", err)
		}
	})
	defer flushTelemetry()

	gw, err := gateway.New(gateway.Options{
		BaseURL:  cfg.Backend.BaseURL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Timeout:  cfg.Backend.Timeout,
		Logger:   lg,
	})
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	sink, err := reports.Open(ctx, cfg.Reports)
	if err != nil {
		return fmt.Errorf("reports: %w", err)
	}

	sess := session.New(session.Deps{
		Gateway:   gw,
		Sink:      sink,
		Logger:    lg,
		NotifyTTL: cfg.UI.NotifyTTL,
		Context:   ctx,
	})
	lg.Info("starting", "version", version, "backend", cfg.Backend.BaseURL, "reports", string(sink.Driver()))

	p := tea.NewProgram(tui.New(tui.Options{
		Session:    sess,
		UploadDir:  cfg.UI.UploadDir,
		DateFormat: cfg.UI.DateFormat,
		Location:   cfg.Location(),
		Version:    version,
		Logger:     lg,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	if err := runProgram(ctx, p, flushTelemetry); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	lg.Info("exiting")
	return nil
}

type program interface {
	Run() (tea.Model, error)
	Quit()
}

// runProgram runs p until it exits, then calls flush. A cancelled ctx asks p
// to quit; a kill caused by that cancellation is not an error.
func runProgram(ctx context.Context, p program, flush func()) error {
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			// ask for a clean exit; the context kill may still win
			p.Quit()
			<-done
		case <-done:
		}
		flush()
		return nil
	})
	return g.Wait()
}

// resolvePassword prefers an explicit env override, then the credential file,
// then whatever the config file holds.
func resolvePassword(cfg config.Config, store *secrets.Store) string {
	if v := os.Getenv("EQUIPVIZ_BACKEND_PASSWORD"); v != "" {
		return v
	}
	if pw, err := store.Password(cfg.Backend.BaseURL, cfg.Backend.Username); err == nil {
		return pw
	}
	return cfg.Backend.Password
}

func storePassword(store *secrets.Store, cfg config.Config, in io.Reader) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return errors.New("empty password")
	}
	return store.SetPassword(cfg.Backend.BaseURL, cfg.Backend.Username, pw)
}
