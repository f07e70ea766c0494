package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"exam-arena/internal/config"
	"exam-arena/internal/logger"
	"exam-arena/internal/transport/ws"
)

// NewBrokerCmd builds the subcommand running the rendezvous broker.
func NewBrokerCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "broker",
		Short: "Run the rendezvous broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroker(cmd.Context(), *configPath, *port)
		},
	}
}

func runBroker(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	broker := ws.NewBroker(log)
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     broker.Handler(),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting broker")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("broker stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down broker")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down broker")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
