package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/engine"
	"github.com/rocketscienceinc/tictactoe-arena/internal/gateway"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
)

// RunGateway - runs the gateway process: registry, TCP server, operator
// console and, when redis is configured, the finished-game archive.
func RunGateway(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	var archive repository.ArchiveRepository

	if conf.Redis.Enabled() {
		client, err := storage.New(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = client.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		archive = repository.NewArchiveRepository(client)
		log.Info("game archive enabled", "addr", conf.Redis.GetRedisAddr())
	}

	registry := gateway.NewRegistry()
	server := gateway.New(logger, registry, archive, conf.Gateway.AckTimeout)

	console := gateway.NewConsole(logger, registry, cancel)
	go console.Run(os.Stdin, os.Stdout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting gateway server", "port", conf.Gateway.Port)
		if err := server.Start(ctx, conf.Gateway.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// RunEngine - runs the game-engine process: one backend connection to the
// gateway per configured worker.
func RunEngine(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	if err := engine.RunWorkers(ctx, logger, conf.Engine.GatewayAddr, conf.Engine.Workers, conf.Engine.AckTimeout); err != nil {
		return fmt.Errorf("engine error: %w", err)
	}

	return nil
}

func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	return ctx, cancel
}
