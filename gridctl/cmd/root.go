package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridstream-io/gridstream/gridctl/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gridctl",
	Short: "GridStream operator CLI",
	Long: `gridctl is the command-line interface for operating a GridStream grid.

Log in to the coordinator, manage tenants and their hosts and event
producers, inspect the worker registry, and seed synthetic events into
a worker intake for testing.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gridctl.yaml, then $HOME/.gridstream/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
