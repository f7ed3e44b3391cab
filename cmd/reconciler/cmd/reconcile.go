package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/store"
)

var (
	reconcileActor  string
	reconcileOutput string
)

// reconcileCmd runs one reconciliation against the database and prints the
// summary.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation over the stored transactions and statements",
	Long: `Reconcile loads the stored transactions and bank statements, matches
them using the tiered rules (reference, three-way, fuzzy), persists an
immutable run record, and prints the run summary.

Examples:
  reconciler reconcile
  reconciler reconcile --db prod.db --actor ops@example.com
  reconciler reconcile --output json`,
	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileActor, "actor", "cli", "actor recorded in the audit trail")
	reconcileCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "console", "output format: console, json")

	viper.BindPFlag("actor", reconcileCmd.Flags().Lookup("actor"))
	viper.BindPFlag("output", reconcileCmd.Flags().Lookup("output"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	reconcileActor = viper.GetString("actor")
	reconcileOutput = viper.GetString("output")

	switch reconcileOutput {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("invalid output format %q. Valid formats: console, json", reconcileOutput)
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := config.SetupLogging(); err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer st.Close()

	service := reconciler.NewService(st, config.CreateMatcher())

	run, err := service.Run(context.Background(), reconcileActor)
	if err != nil {
		return err
	}

	switch reconcileOutput {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(run)
	default:
		printRunSummary(run)
		return nil
	}
}

func printRunSummary(run *models.Run) {
	fmt.Printf("Reconciliation run %s completed at %s\n", run.ID, run.RunDate.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Total transactions: %d\n", run.Summary.TotalTransactions)
	fmt.Printf("  Matched:            %d\n", run.Summary.Matched)
	fmt.Printf("  Partial:            %d\n", run.Summary.Partial)
	fmt.Printf("  Unmatched:          %d\n", run.Summary.Unmatched)
	fmt.Printf("  Review:             %d\n", run.Summary.Review)
	fmt.Printf("  Duplicate:          %d\n", run.Summary.Duplicate)
	fmt.Printf("  By type: reference=%d threeway=%d fuzzy=%d failed=%d pending=%d\n",
		run.Summary.MatchesByType.Reference,
		run.Summary.MatchesByType.Threeway,
		run.Summary.MatchesByType.Fuzzy,
		run.Summary.MatchesByType.FailedTransaction,
		run.Summary.MatchesByType.PendingMatch)
}
