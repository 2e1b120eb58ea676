package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/transport"
)

// RunWorkers - dials the gateway once per worker and runs one Engine per
// connection. Each worker is an independent backend hosting one session
// at a time; the first worker failure stops the lot.
func RunWorkers(ctx context.Context, logger *slog.Logger, gatewayAddr string, workers int, ackTimeout time.Duration) error {
	log := logger.With("component", "engine-workers")

	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		workerLogger := logger.With("worker", i)

		conn, err := net.Dial("tcp", gatewayAddr)
		if err != nil {
			return fmt.Errorf("failed to dial gateway at %s: %w", gatewayAddr, err)
		}

		channel := transport.NewChannel(workerLogger, conn)

		go func() {
			defer channel.Close()

			if runErr := New(workerLogger, channel, ackTimeout).Run(ctx); runErr != nil {
				errCh <- runErr
			}
		}()
	}

	log.Info("engine workers running", "count", workers, "gateway", gatewayAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("engine worker failed: %w", err)
	case <-ctx.Done():
		log.Info("engine workers shutting down")
		return nil
	}
}
