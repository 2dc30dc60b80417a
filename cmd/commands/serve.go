package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mentorkit/mentor/internal/config"
	"github.com/mentorkit/mentor/internal/events"
	"github.com/mentorkit/mentor/internal/gateway"
	"github.com/mentorkit/mentor/internal/models"
	"github.com/mentorkit/mentor/internal/orchestrator"
	"github.com/mentorkit/mentor/internal/prompts"
	"github.com/mentorkit/mentor/internal/server"
	"github.com/mentorkit/mentor/internal/session"
	"github.com/mentorkit/mentor/internal/tools"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the mentor server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	eventLog := events.NewLogger(filepath.Join(cfg.Workspace.Root, ".events"), bus)
	defer eventLog.Close()

	registry := models.NewRegistry(cfg.Models)
	chatModel, err := registry.Default(ctx)
	if err != nil {
		return fmt.Errorf("init default model: %w", err)
	}
	gw := gateway.New(chatModel)

	store, err := session.NewFileStore(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("init workspace: %w", err)
	}

	// New sessions get a compression budget of 80% of the model's window.
	contextWindow := registry.DefaultContextWindow()
	repo := session.NewRepository(store, func() int {
		return contextWindow * 80 / 100
	})

	promptStore, err := prompts.Load(cfg.Prompts.File)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	provider, err := tools.NewProvider(ctx, cfg.Search)
	if err != nil {
		return fmt.Errorf("init search provider: %w", err)
	}
	if provider == nil {
		slog.Info("web search disabled, no provider configured")
	}

	exec := tools.NewExecutor(store, provider)
	orch := orchestrator.New(repo, gw, exec, promptStore, bus, contextWindow)

	srv := server.NewServer(orch, repo, bus, cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
