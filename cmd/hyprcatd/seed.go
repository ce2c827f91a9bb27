package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/config"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "write the demonstration resource mesh into the configured store and exit",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	resourceStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := catalog.Seed(context.Background(), resourceStore); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Println("seed complete")
	return nil
}
