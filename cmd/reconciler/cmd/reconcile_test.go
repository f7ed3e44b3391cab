package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func TestValidateReconcileFlags(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		expectError bool
	}{
		{
			name:        "console output",
			output:      "console",
			expectError: false,
		},
		{
			name:        "json output",
			output:      "json",
			expectError: false,
		},
		{
			name:        "invalid output",
			output:      "xml",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("output", tt.output)
			viper.Set("actor", "cli")

			err := validateReconcileFlags(reconcileCmd, nil)
			if tt.expectError && err == nil {
				t.Errorf("expected an error for output %q", tt.output)
			}
			if !tt.expectError && err != nil {
				t.Errorf("expected no error for output %q, got %v", tt.output, err)
			}
		})
	}
	viper.Reset()
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("expected exit code 0 for nil error, got %d", got)
	}
}
