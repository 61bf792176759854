package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/samijaber1/aegis-watch/internal/model"
)

var (
	green  = lipgloss.Color("#10B981")
	red    = lipgloss.Color("#EF4444")
	yellow = lipgloss.Color("#F59E0B")
	dim    = lipgloss.Color("#6B7280")
	accent = lipgloss.Color("#7C3AED")

	bannerText    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimText       = lipgloss.NewStyle().Foreground(dim)
	healthyText   = lipgloss.NewStyle().Foreground(green).Bold(true)
	unhealthyText = lipgloss.NewStyle().Foreground(red).Bold(true)
	warningText   = lipgloss.NewStyle().Foreground(yellow)
	tableHeader   = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

func newStatusCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show endpoint health from a running dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := fetchHealth(cmd.Context(), apiURL)
			if err != nil {
				return fmt.Errorf("failed to fetch health: %w", err)
			}
			renderHealth(cmd.OutOrStdout(), health)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "aegis-watch dashboard URL")
	return cmd
}

func fetchHealth(ctx context.Context, baseURL string) (*model.HealthStatus, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var health model.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("invalid health response: %w", err)
	}
	return &health, nil
}

func renderHealth(w io.Writer, h *model.HealthStatus) {
	summary := fmt.Sprintf("  %d/%d healthy, %.2f%% availability, %d active alert(s)",
		h.HealthyEndpoints, h.TotalEndpoints, h.OverallAvailability, h.ActiveAlerts)
	fmt.Fprintln(w, bannerText.Render("AEGIS WATCH")+dimText.Render(summary))
	fmt.Fprintln(w)

	if len(h.Endpoints) == 0 {
		fmt.Fprintln(w, dimText.Render("No endpoints configured."))
		return
	}

	header := fmt.Sprintf("  %-2s  %-20s %-10s %-8s %-10s %-10s %s",
		"", "ENDPOINT", "STATUS", "CODE", "LATENCY", "AVAIL", "LAST CHECK")
	fmt.Fprintln(w, tableHeader.Render(header))

	names := make([]string, 0, len(h.Endpoints))
	for name := range h.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintln(w, endpointRow(name, h.Endpoints[name]))
	}
	fmt.Fprintln(w)
}

func endpointRow(name string, e model.EndpointHealth) string {
	dot := unhealthyText.Render("●")
	if e.Healthy {
		dot = healthyText.Render("●")
	}

	status := padRight(string(e.Status), 10)
	switch e.Status {
	case model.StatusHealthy:
		status = healthyText.Render(status)
	case model.StatusDegraded:
		status = warningText.Render(status)
	case model.StatusOutage:
		status = unhealthyText.Render(status)
	default:
		status = dimText.Render(status)
	}

	code := "-"
	if e.LastStatusCode != nil {
		code = fmt.Sprintf("%d", *e.LastStatusCode)
	}
	latency := "-"
	if e.LastLatencyMs != nil {
		latency = fmt.Sprintf("%.0fms", *e.LastLatencyMs)
	}
	lastCheck := dimText.Render("never")
	if e.LastCheck != nil {
		lastCheck = dimText.Render(e.LastCheck.Local().Format("15:04:05"))
	}

	return fmt.Sprintf("  %s   %-20s %s %-8s %-10s %-10s %s",
		dot, truncate(name, 20), status, code, latency,
		fmt.Sprintf("%.1f%%", e.Availability), lastCheck)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
