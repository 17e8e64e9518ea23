// Package main is the entry point for wxrelay.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wxrelay",
	Short: "Resilient weather-data proxy with an independent watchdog",
	Long: `wxrelay fronts multiple weather-data providers behind one endpoint,
failing over between them with per-provider circuit breakers, and ships an
independent watchdog that follows the proxy's heartbeat stream.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/wxrelay/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config file to load, or "" to run on the
// built-in defaults when no file exists in the default locations.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}

	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := home + "/.config/wxrelay/" + defaultConfigFile
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
