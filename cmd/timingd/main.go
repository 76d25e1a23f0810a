package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	remoteAddr string
)

// #region main
func main() {
	rootCmd := &cobra.Command{
		Use:   "timingd",
		Short: "Adaptive reminder timing daemon",
		Long: `timingd learns, per scheduled item, how far from the nominal time a
reminder should fire. It serves the engine over gRPC and offers local
commands for deciding, confirming and inspecting items.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("TIMING_CONFIG", "timing.yaml"), "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", "", "call a running timingd at this gRPC address instead of opening the store")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newDecideCommand())
	rootCmd.AddCommand(newConfirmCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newPolicyCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newTakeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
