package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"portrait-pipeline/internal/api"
	"portrait-pipeline/internal/api/handler"
	"portrait-pipeline/internal/app"
	"portrait-pipeline/internal/config"
	"portrait-pipeline/pkg/router"
)

// @title Portrait Pipeline API
// @version 1.0
// @description Submit face photos for stylized portraits and fetch the latest result.
// @BasePath /
func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "pipeline-api",
		Short: "Serve the submit-request and fetch-result gateways",
		Long: `pipeline-api hosts the two synchronous endpoints of the portrait pipeline:

  POST /apis/images/upload   accept a generation request, return an upload URL
  GET  /apis/images/{userId} return the user's latest portrait

Settings come from flags, PORTRAIT_* environment variables and --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(v, cmd.Flag("config").Value.String(), (*config.Config).ValidateGateway)
			if err != nil {
				return err
			}
			defer a.Close()

			requests, results, status, err := a.Gateways()
			if err != nil {
				return err
			}

			r := router.New(a.Log)
			api.RegisterGatewayRoutes(r, handler.NewGatewayHandler(requests, results, status, a.Log), a.Config.CORS.AllowedOrigins)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.Start(ctx, a.Config.Listen)
		},
	}

	if err := config.BindFlags(v, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
