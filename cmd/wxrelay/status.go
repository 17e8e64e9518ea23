package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wxrelay/wxrelay/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the wx-relay proxy is running",
	Long: `Query a running proxy's /health endpoint and print its overall status
and per-provider circuit states.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadWatchConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	listen := cfg.Server.GetListen()
	healthURL := "http://" + hostFor(listen) + "/health"

	client := &http.Client{Timeout: 5 * time.Second}

	//nolint:noctx // one-shot CLI health check
	resp, err := client.Get(healthURL)
	if err != nil {
		fmt.Printf("✗ wx-relay is not running (%s)\n", listen)
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // one-shot CLI request

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	var snap status.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("unexpected health payload: %w", err)
	}

	printSnapshot(snap, listen)

	if snap.Overall == status.OverallDown {
		return fmt.Errorf("all providers are down")
	}
	return nil
}

func printSnapshot(snap status.Snapshot, listen string) {
	symbol := "✓"
	if snap.Overall != status.OverallHealthy {
		symbol = "⚠"
	}
	if snap.Overall == status.OverallDown {
		symbol = "✗"
	}

	fmt.Printf("%s wx-relay is running (%s), overall: %s\n", symbol, listen, snap.Overall)
	if snap.ActiveProvider != "" {
		fmt.Printf("  active provider: %s\n", snap.ActiveProvider)
	}
	for _, p := range snap.Providers {
		fmt.Printf("  %-14s priority=%d state=%s\n", p.Name, p.Priority, p.State)
	}
}

// hostFor turns a listen address like ":8000" into a dialable host:port.
func hostFor(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
