package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/mehmetcc/medgate/internal/config"
	"github.com/mehmetcc/medgate/internal/desktop"
	"github.com/mehmetcc/medgate/internal/httpx"
	"github.com/mehmetcc/medgate/internal/session"
	"github.com/mehmetcc/medgate/pkg/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		serverURL string
		timeout   time.Duration
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:           "medgate-desktop",
		Short:         "Terminal client for the medgate API",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			}
			defer func() { _ = logger.Sync() }()

			c := client.New(serverURL, session.NewStore(),
				client.WithPlatform(httpx.PlatformDesktop),
				client.WithTimeout(timeout),
				client.WithLogger(logger),
			)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return desktop.NewShell(c, cmd.InOrStdin(), cmd.OutOrStdout(), timeout, logger).Run(ctx)
		},
	}

	config.LoadDotenv(zap.NewNop())
	defaultServer := os.Getenv("MEDGATE_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "API base URL (env MEDGATE_SERVER)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log client activity to stderr")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
