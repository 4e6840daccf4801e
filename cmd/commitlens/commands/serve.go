package commands

import (
	"commitlens/internal/api"
	"commitlens/internal/cache"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const PortEnvKey = "HTTP_PORT"

func NewServeCommand(o *Options) *cobra.Command {
	var port int
	var checkEvery time.Duration
	def, err := strconv.Atoi(getenv(PortEnvKey, "8787"))
	if err != nil {
		def = 8787
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := NewApp(ctx, o)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer app.Close(context.Background())

			refreshCtx, cancelRefresh := context.WithCancel(ctx)
			defer cancelRefresh()
			go app.Directory.RunAutoRefresh(refreshCtx, checkEvery)

			h := api.NewHandler(app.Directory, app.Config, app.Correlator)
			stop, done := api.RunServerInterruptible(port, h)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			select {
			case s := <-sig:
				log.WithField("signal", s.String()).Info("shutting down")
				close(stop)
				return <-done
			case err := <-done:
				return err
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", def, "listen port")
	cmd.Flags().DurationVar(&checkEvery, "refresh-check", cache.DefaultCheckInterval, "how often the directory cache age is checked")
	return cmd
}
