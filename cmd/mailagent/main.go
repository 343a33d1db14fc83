package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailagent/internal/app"
	"github.com/nhle/mailagent/internal/export"
	"github.com/nhle/mailagent/internal/model"
	"github.com/nhle/mailagent/internal/theme"
)

type cliConfig struct {
	configPath  string
	storage     string
	exportDraft string
	out         string
	health      bool
	watchAgent  bool
	saveConfig  bool
}

func main() {
	cli := parseFlags()
	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "mailagent:", err)
		os.Exit(1)
	}
}

func parseFlags() cliConfig {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	storage := flag.String("storage", "", "session storage backend: keyring, sqlite or memory")
	exportDraft := flag.String("export-draft", "", "export the draft with this id as .eml and exit")
	out := flag.String("out", "", "output file for -export-draft (default stdout)")
	health := flag.Bool("health", false, "print backend health and exit")
	watchAgent := flag.Bool("watch-agent", false, "print agent WebSocket frames until interrupted")
	saveConfig := flag.Bool("save-config", false, "write the effective config, flags included, to -config and exit")
	flag.Parse()

	return cliConfig{
		configPath:  *configPath,
		storage:     *storage,
		exportDraft: *exportDraft,
		out:         *out,
		health:      *health,
		watchAgent:  *watchAgent,
		saveConfig:  *saveConfig,
	}
}

func run(cli cliConfig) error {
	cfg, err := model.LoadConfig(cli.configPath)
	if err != nil {
		return err
	}
	if cli.storage != "" {
		cfg.Storage.Backend = cli.storage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if err := theme.Use(cfg.Display.Theme); err != nil {
		return fmt.Errorf("display.theme: %w", err)
	}

	if cli.saveConfig {
		if err := model.SaveConfig(cli.configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "wrote", cli.configPath)
		return nil
	}

	logger, closeLog, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	kv, closeStore, err := app.OpenStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	svc := app.NewServices(cfg, kv, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	restoreCtx, cancelRestore := context.WithTimeout(ctx, 15*time.Second)
	err = svc.Session.Restore(restoreCtx)
	cancelRestore()
	if err != nil {
		logger.Warn("restoring session failed", "error", err)
	}

	switch {
	case cli.health:
		return printHealth(ctx, svc)
	case cli.exportDraft != "":
		return exportDraft(ctx, svc, cli.exportDraft, cli.out)
	case cli.watchAgent:
		return watchAgent(ctx, svc)
	}

	logger.Info("starting", "api", cfg.API.BaseURL, "storage", cfg.Storage.Backend)
	p := tea.NewProgram(app.New(svc), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	svc.Coordinator.Stop()
	return nil
}

func printHealth(ctx context.Context, svc *app.Services) error {
	checks := []struct {
		name string
		fn   func(context.Context) (*model.Health, error)
	}{
		{"api", svc.API.Health.Check},
		{"database", svc.API.Health.Database},
		{"ai", svc.API.Health.AI},
	}

	var failed bool
	for _, c := range checks {
		h, err := c.fn(ctx)
		if err != nil {
			failed = true
			fmt.Printf("%-9s unreachable: %v\n", c.name, err)
			continue
		}
		fmt.Printf("%-9s %s\n", c.name, h.Status)
	}
	if failed {
		return errors.New("backend unhealthy")
	}
	return nil
}

func exportDraft(ctx context.Context, svc *app.Services, id, out string) error {
	if !svc.Session.Authenticated() {
		return errors.New("sign in with the terminal UI before exporting drafts")
	}

	d, err := svc.API.Drafts.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch draft %s: %w", id, err)
	}

	var opts export.Options
	if u := svc.Session.Session().User; u != nil {
		opts.From = u.Email
	}

	if out == "" {
		return export.WriteDraft(os.Stdout, *d, opts)
	}
	if err := export.WriteDraftFile(out, *d, opts); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "wrote", out)
	return nil
}

func watchAgent(ctx context.Context, svc *app.Services) error {
	sock, err := svc.API.Agent.Dial(ctx, "")
	if err != nil {
		return err
	}
	defer sock.Close()

	fmt.Fprintln(os.Stderr, "connected as", sock.ClientID)
	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sock.Messages():
			if !ok {
				return sock.Err()
			}
			if err := enc.Encode(msg); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}
	}
}
