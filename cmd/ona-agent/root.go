package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyprcat/hyprcat/internal/agent"
	"github.com/hyprcat/hyprcat/internal/navigator"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

var (
	flagAgentDID         string
	flagStartURL         string
	flagMaxIterations    int
	flagIterationDelay   time.Duration
	flagAutoPay          bool
	flagAutoPayMaxAmount int64
	flagStrategies       []string
)

var rootCmd = &cobra.Command{
	Use:   "ona-agent",
	Short: "ona-agent runs one Observe/Negotiate/Attest loop against a HyprCAT gateway",
	RunE:  runAgent,
}

func init() {
	rootCmd.Flags().StringVar(&flagAgentDID, "agent-did", "", "the agent's DID (required)")
	rootCmd.Flags().StringVar(&flagStartURL, "start-url", "", "the resource URL to begin observing (required)")
	rootCmd.Flags().IntVar(&flagMaxIterations, "max-iterations", 20, "stop after this many iterations (0 = unbounded)")
	rootCmd.Flags().DurationVar(&flagIterationDelay, "iteration-delay", 500*time.Millisecond, "delay between iterations")
	rootCmd.Flags().BoolVar(&flagAutoPay, "auto-pay", false, "automatically pay invoices within --auto-pay-max-amount")
	rootCmd.Flags().Int64Var(&flagAutoPayMaxAmount, "auto-pay-max-amount", 0, "the largest invoice amount to auto-pay")
	rootCmd.Flags().StringArrayVar(&flagStrategies, "strategy", []string{"retail", "analytics"}, "strategy to register (repeatable): retail, analytics")

	_ = rootCmd.MarkFlagRequired("agent-did")
	_ = rootCmd.MarkFlagRequired("start-url")
}

func runAgent(cmd *cobra.Command, args []string) error {
	strategies, err := resolveStrategies(flagStrategies)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	nav := navigator.New(navigator.Config{})
	wallets := wallet.New()
	wallets.EnsureWallet(flagAgentDID)
	prov := provenance.New()

	rt := agent.New(agent.Config{
		AgentDID:         flagAgentDID,
		StartURL:         flagStartURL,
		MaxIterations:    flagMaxIterations,
		IterationDelay:   flagIterationDelay,
		AutoPayEnabled:   flagAutoPay,
		AutoPayMaxAmount: flagAutoPayMaxAmount,
	}, nav, wallets, prov, strategies, logger)

	logger.Info("ona-agent starting", "agentDid", flagAgentDID, "startUrl", flagStartURL, "maxIterations", flagMaxIterations)
	if err := rt.Run(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Info("ona-agent finished", "state", rt.State())
	return nil
}

func resolveStrategies(names []string) ([]strategy.Strategy, error) {
	out := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case "retail":
			out = append(out, strategy.Retail{})
		case "analytics":
			out = append(out, strategy.Analytics{})
		default:
			return nil, fmt.Errorf("ona-agent: unrecognized strategy %q", name)
		}
	}
	return out, nil
}
