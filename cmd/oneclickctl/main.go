package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivankudzin/oneclick/internal/config"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "oneclickctl",
		Short:         "Operator tooling for the oneclick payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to the yaml config file")

	load := func() (config.Config, error) {
		return config.Load(cfgPath)
	}

	rootCmd.AddCommand(migrateCmd(load))
	rootCmd.AddCommand(encodeIDCmd(load))
	rootCmd.AddCommand(decodeIDCmd(load))
	rootCmd.AddCommand(issueTokenCmd(load))

	return rootCmd
}

func defaultConfigPath() string {
	if v := os.Getenv("APP_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

type configLoader func() (config.Config, error)
