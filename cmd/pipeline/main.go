package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"portrait-pipeline/internal/api"
	"portrait-pipeline/internal/api/handler"
	"portrait-pipeline/internal/app"
	"portrait-pipeline/internal/catalog"
	"portrait-pipeline/internal/config"
	"portrait-pipeline/pkg/router"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the notification-driven stages of the portrait pipeline",
		Long: `pipeline hosts the swap, restore and completion stages. Object-created
notifications arrive either over HTTP (serve) or from an SQS queue (consume)
and are routed by the storage path of the object.`,
		SilenceUsage: true,
	}

	if err := config.BindFlags(v, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newConsumeCmd(v))
	rootCmd.AddCommand(newCatalogCmd(v))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive S3 event notifications on POST /api/v1/events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(v, cmd.Flag("config").Value.String(), (*config.Config).ValidateStages)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.Dispatcher()
			if err != nil {
				return err
			}

			r := router.New(a.Log)
			api.RegisterEventRoutes(r, handler.NewEventHandler(d, a.Log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.Start(ctx, a.Config.Listen)
		},
	}
}

func newConsumeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Long-poll the SQS queue subscribed to bucket notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(v, cmd.Flag("config").Value.String(), (*config.Config).ValidateConsumer)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.Dispatcher()
			if err != nil {
				return err
			}
			consumer, err := a.Consumer(d)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Run(ctx)
		},
	}
}

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage base portraits",
	}

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Load base portraits from a CSV, JSON or YAML file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Load(v, cmd.Flag("config").Value.String(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := catalog.ImportFile(cmd.Context(), args[0], a.Store, a.Log)
			if err != nil {
				return err
			}
			a.Log.Info("import finished", zap.String("file", args[0]), zap.Int("records", n))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d base resources\n", n)
			return nil
		},
	})
	return catalogCmd
}
