package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quantumbreach/internal/config"
	"quantumbreach/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	offline    bool
	theme      string

	cfg *config.Config

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "breach",
	Short: "QUANTUM_BREACH - typing-speed intrusion simulator",
	Long: `QUANTUM_BREACH is a terminal typing game.

Pick a threat level, then breach every node on the grid by typing its
three-stage handshake before the timer runs out. A detection meter rises
every second; compromised nodes can be suppressed to slow it down.

Run without arguments to start the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if theme != "" {
			cfg.UI.Theme = theme
		}
		if offline {
			cfg.Payload.Provider = config.ProviderFallback
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		// Skip stderr logger for interactive mode (it owns the terminal)
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		_ = logging.Sync()
	},
	RunE: runConsole,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Never call the text generator; use the built-in stages")
	rootCmd.Flags().StringVar(&theme, "theme", "", "Console theme (auto, dark, light)")

	catalogCmd.Flags().StringVarP(&catalogDifficulty, "difficulty", "d", "", "Show the roster for a difficulty instead of the full catalog")

	budgetCmd.Flags().StringVarP(&budgetRank, "rank", "r", "", "Node rank (EASY, MEDIUM, HARD, PRO)")
	budgetCmd.Flags().StringVarP(&budgetDifficulty, "difficulty", "d", "", "Session difficulty")
	budgetCmd.Flags().IntVarP(&budgetSuppressed, "suppressed", "s", 0, "Active suppressions")

	payloadCmd.Flags().BoolVar(&payloadFallback, "fallback", false, "Print the fallback stages without calling the generator")

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(catalogCmd, budgetCmd, payloadCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
