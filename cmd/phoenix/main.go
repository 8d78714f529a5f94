package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/phoenix/internal/config"
	"github.com/efebarandurmaz/phoenix/internal/logging"
	"github.com/efebarandurmaz/phoenix/internal/secrets"
)

type globals struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logCloser  io.Closer
}

func main() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("environment loaded from .env")
	}

	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "phoenix",
		Short:         "Legacy code transformation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logCloser != nil {
				g.logCloser.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file path (optional)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(
		newServeCmd(g),
		newTransformCmd(g),
		newAnalyzeCmd(g),
		newClassifyCmd(),
		newTargetsCmd(),
		newLanguagesCmd(),
		newProvidersCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (g *globals) init() error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := secrets.Apply(context.Background(), cfg); err != nil {
		return fmt.Errorf("resolving secrets: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	closer, err := logging.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	for _, w := range cfg.Validate() {
		logrus.WithField("component", "config").Warn(w)
	}
	g.cfg = cfg
	g.logCloser = closer
	return nil
}
