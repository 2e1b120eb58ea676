package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Console is the operator's stdin interface: /users reports the connected
// user count, /exit shuts the gateway down.
type Console struct {
	logger   *slog.Logger
	registry *Registry
	cancel   context.CancelFunc
}

func NewConsole(logger *slog.Logger, registry *Registry, cancel context.CancelFunc) *Console {
	return &Console{
		logger:   logger.With("component", "console"),
		registry: registry,
		cancel:   cancel,
	}
}

// Run - reads operator commands until EOF or /exit.
func (that *Console) Run(in io.Reader, out io.Writer) {
	log := that.logger.With("method", "Run")

	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Commands\n/users\n/exit")

	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "/users":
			fmt.Fprintf(out, "Number of online users is %d\n", that.registry.UserCount())
		case "/exit":
			log.Warn("operator requested shutdown")
			that.cancel()
			return
		default:
			fmt.Fprintln(out, "Commands\n/users\n/exit")
		}
	}

	if err := scanner.Err(); err != nil {
		log.Error("console input failed", "error", err)
	}
}
