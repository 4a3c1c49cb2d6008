package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"homewatch/internal/config"
)

var configPath string

func main() {
	// print commands in help/usage text in the order they are declared
	cobra.EnableCommandSorting = false

	root := &cobra.Command{
		Use:           "homewatch",
		Short:         "Watch Netatmo cameras and recognize your family",
		Long:          `Use "homewatch [command] --help" for information on a specific command`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config.yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(credentialsCmd())
	root.AddCommand(camerasCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(detectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("homewatch: %v", err))
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if value := os.Getenv("HOMEWATCH_CONFIG"); value != "" {
		return value
	}
	return config.DefaultPath
}
