package main

import (
	"fmt"

	"github.com/spf13/cobra"

	domaincfg "lifetree-backend/domain/config"
	infraconfig "lifetree-backend/infrastructure/config"
)

func tuningCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tuning",
		Short: "Inspect and validate physics tuning files",
	}

	cmd.AddCommand(
		tuningCheckCmd(),
		tuningShowCmd(),
	)

	return cmd
}

func tuningCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a tuning file and print the effective values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuning, err := infraconfig.LoadTuningFile(args[0])
			if err != nil {
				return err
			}
			good.Printf("%s is valid\n\n", args[0])
			printTuning(tuning)
			return nil
		},
	}
}

func tuningShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the built-in tuning defaults",
		Run: func(cmd *cobra.Command, args []string) {
			printTuning(domaincfg.DefaultPhysicsConfig())
		},
	}
}

func printTuning(cfg domaincfg.PhysicsConfig) {
	accent.Println("  physics tuning")
	fmt.Printf("  Repulsion strength: %g\n", cfg.RepulsionStrength)
	fmt.Printf("  Repulsion range:    %g\n", cfg.RepulsionRange)
	fmt.Printf("  Spring strength:    %g\n", cfg.SpringStrength)
	fmt.Printf("  Spring length:      %g\n", cfg.SpringLength)
	fmt.Printf("  Friction:           %g\n", cfg.Friction)
	fmt.Printf("  Gravity strength:   %g\n", cfg.GravityStrength)
	fmt.Printf("  Max velocity:       %g\n", cfg.MaxVelocity)
	fmt.Printf("  Growth duration:    %gs\n", cfg.GrowthDurationSeconds)
}
