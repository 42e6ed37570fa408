// Package main provides the ecoroute operator CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ecoroute",
		Short:        "Eco-friendly route scoring and planning",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

func scoreCmd() *cobra.Command {
	var in scoreInput

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a route offline from its distance and destination conditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd.OutOrStdout(), in)
		},
	}

	cmd.Flags().StringVarP(&in.mode, "mode", "m", "cycling-regular", "travel mode")
	cmd.Flags().Float64VarP(&in.distanceKm, "distance", "d", 0, "route distance in km")
	cmd.Flags().Float64Var(&in.durationMin, "duration", 0, "route duration in minutes")
	cmd.Flags().StringVarP(&in.condition, "condition", "c", "Clear sky", "weather condition at the destination")
	cmd.Flags().IntVarP(&in.aqi, "aqi", "a", 0, "air quality index 1-5 (0 for unknown)")
	return cmd
}

func planCmd() *cobra.Command {
	var modes string

	cmd := &cobra.Command{
		Use:   "plan [start lon,lat] [end lon,lat]",
		Short: "Plan and rank travel modes between two points using live providers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], modes)
		},
	}

	cmd.Flags().StringVar(&modes, "modes", "driving-car,cycling-regular,foot-walking", "comma-separated travel modes")
	return cmd
}

func compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [start lon,lat] [end lon,lat]",
		Short: "Compare the default travel modes between two points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		operator   string
		signingKey string
		ttl        string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the ops and history endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd.OutOrStdout(), operator, signingKey, ttl)
		},
	}

	cmd.Flags().StringVarP(&operator, "operator", "o", "", "operator name (required)")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "signing key (default: $OPS_JWT_SIGNING_KEY)")
	cmd.Flags().StringVar(&ttl, "ttl", "12h", "token lifetime")
	_ = cmd.MarkFlagRequired("operator") //nolint:errcheck // flag is defined above
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|status]",
		Short:     "Apply or inspect the history database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return runMigrate(cmd.Context(), action)
		},
	}
}
