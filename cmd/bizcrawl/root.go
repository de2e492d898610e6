package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FranksOps/bizcrawl/internal/config"
)

var (
	v       = viper.New()
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "bizcrawl",
	Short:        "Business directory crawler",
	Long:         "Walks directory search results, follows each business to its review feed and its own page, and stores one record per business.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}

		c, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log, os.Stderr)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		slog.SetDefault(logger)

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default ./bizcrawl.yaml)")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	f.String("backend", "", "output backend: json, csv, sqlite, postgres")
	f.String("output", "", "output file path or postgres DSN")

	bindFlags(f, map[string]string{
		"log.level":      "log-level",
		"log.format":     "log-format",
		"output.backend": "backend",
		"output.path":    "output",
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
