package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/api"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/reporter"
	"payment-reconciliation-service/internal/store"
)

// serveCmd starts the HTTP API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reconciliation HTTP API server",
	Long: `Serve starts the HTTP API exposing the reconciliation run operation
and the read-only reporting queries (summary, mismatches, history, CSV
download).

Examples:
  reconciler serve
  reconciler serve --db /var/lib/reconciler/prod.db --port 9090
  reconciler serve --allowed-origins https://ops.example.com`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	serveCmd.Flags().StringSlice("allowed-origins", api.DefaultConfig().AllowedOrigins,
		"comma-separated CORS allowed origins")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("allowed-origins", serveCmd.Flags().Lookup("allowed-origins"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.SetupLogging(); err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer st.Close()

	service := reconciler.NewService(st, config.CreateMatcher())
	rep := reporter.NewReporter(st)

	server := api.NewServer(config.CreateServerConfig(), st, service, rep)
	return server.Run()
}
