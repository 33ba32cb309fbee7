package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quantumbreach/cmd/breach/ui"
	"quantumbreach/internal/challenge"
	"quantumbreach/internal/config"
	"quantumbreach/internal/game"
	"quantumbreach/internal/payload"
	"quantumbreach/internal/roster"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	catalogDifficulty string

	budgetRank       string
	budgetDifficulty string
	budgetSuppressed int

	payloadFallback bool

	configForce bool
)

// catalogCmd lists the node catalog
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the node catalog or the roster for a difficulty",
	Example: `  breach catalog
  breach catalog --difficulty hard`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := roster.Catalog()
		if catalogDifficulty != "" {
			d, err := game.ParseDifficulty(catalogDifficulty)
			if err != nil {
				return err
			}
			targets = roster.Generate(d)
			logger.Debug("generated roster", zap.String("difficulty", d.String()), zap.Int("targets", len(targets)))
		}
		fmt.Fprintln(cmd.OutOrStdout(), styles().RosterTable(targets, -1))
		return nil
	},
}

// budgetCmd prints challenge time budgets
var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show challenge time budgets",
	Long: `Without flags, prints the budget for every rank and difficulty with no
suppression. With --rank and --difficulty, prints a single budget in seconds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if budgetSuppressed < 0 {
			return fmt.Errorf("--suppressed must not be negative")
		}

		if budgetRank == "" && budgetDifficulty == "" {
			headers := []string{"RANK"}
			for _, d := range game.Difficulties {
				headers = append(headers, d.String())
			}
			var rows [][]string
			for _, r := range game.Ranks {
				row := []string{r.String()}
				for _, d := range game.Difficulties {
					row = append(row, strconv.Itoa(challenge.Budget(r, d, budgetSuppressed))+"s")
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, styles().Table(headers, rows))
			return nil
		}

		if budgetRank == "" || budgetDifficulty == "" {
			return fmt.Errorf("--rank and --difficulty must be given together")
		}
		r, err := game.ParseRank(budgetRank)
		if err != nil {
			return err
		}
		d, err := game.ParseDifficulty(budgetDifficulty)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, challenge.Budget(r, d, budgetSuppressed))
		return nil
	},
}

// payloadCmd prints the stages a breach on a node of the given rank would use
var payloadCmd = &cobra.Command{
	Use:   "payload RANK [node-name]",
	Short: "Generate challenge stages for a rank",
	Example: `  breach payload hard Neon_Spire_Grid
  breach payload pro --fallback`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := game.ParseRank(args[0])
		if err != nil {
			return err
		}
		name := "Unnamed_Node"
		if len(args) == 2 {
			name = args[1]
		}

		var src payload.Source
		if !payloadFallback {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetPayloadTimeout())
			defer cancel()
			if src, err = buildSource(ctx, cfg); err != nil {
				return err
			}
		}

		res := payload.Resolve(cmd.Context(), src, r, name)
		logger.Debug("resolved payload",
			zap.String("rank", r.String()),
			zap.Bool("fallback", res.FromFallback),
			zap.Int("padded", res.Padded))

		out := cmd.OutOrStdout()
		for i, s := range res.Stages {
			fmt.Fprintf(out, "%d. %s\n", i+1, s)
		}
		if res.FromFallback && !payloadFallback && src != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "generator unavailable, showing fallback stages")
		}
		return nil
	},
}

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		logger.Info("wrote default config", zap.String("path", configPath))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API key masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.Payload.APIKey != "" {
			shown.Payload.APIKey = maskKey(shown.Payload.APIKey)
		}
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (core %s)\n", cfg.Name, version, cfg.Version)
	},
}

func styles() ui.Styles {
	return ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
