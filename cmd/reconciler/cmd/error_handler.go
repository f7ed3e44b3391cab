package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	apperrors "payment-reconciliation-service/pkg/errors"
)

// ExitCode maps an error from a command to a process exit code. Structured
// errors carry their own code; anything else is treated as internal.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	printError(err)

	if rerr, ok := apperrors.AsReconcilerError(err); ok {
		return rerr.GetExitCode()
	}
	return 1
}

func printError(err error) {
	if rerr, ok := apperrors.AsReconcilerError(err); ok {
		fmt.Fprintln(os.Stderr, apperrors.FormatUserMessage(rerr))
		if viper.GetBool("verbose") && rerr.Cause != nil {
			fmt.Fprintf(os.Stderr, "Caused by: %v\n", rerr.Cause)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
