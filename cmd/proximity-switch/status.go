package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sweeney/proximity-switch/internal/status"
)

var (
	colorOn      = lipgloss.Color("#00CC33")
	colorOff     = lipgloss.Color("#888888")
	colorUnknown = lipgloss.Color("#FFAA00")
	colorError   = lipgloss.Color("#FF3300")

	titleSty = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	labelSty = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("#AAAAAA"))
	boxSty   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00AA22")).
			Padding(0, 1)
)

func runStatus(cmd *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(flagStatusURL)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	inner, err := status.ParseJSON(body)
	if err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(inner))
	return nil
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "ON":
		return lipgloss.NewStyle().Bold(true).Foreground(colorOn)
	case "OFF":
		return lipgloss.NewStyle().Foreground(colorOff)
	}
	return lipgloss.NewStyle().Foreground(colorUnknown)
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelSty.Render(label), value)
}

// renderStatus formats a status document for the terminal.
func renderStatus(s status.StatusInner) string {
	avg := "n/a"
	if s.SonicAvgMM != nil {
		avg = fmt.Sprintf("%d mm", *s.SonicAvgMM)
	}

	mqtt := lipgloss.NewStyle().Foreground(colorError).Render("disconnected")
	if s.MQTT.Connected {
		mqtt = lipgloss.NewStyle().Foreground(colorOn).Render("connected")
	}

	rows := []string{
		row("Light", stateStyle(s.Light).Render(s.Light)),
		row("Fan", stateStyle(s.Fan).Render(s.Fan)),
		row("Last average", avg),
		row("Window", fmt.Sprintf("%d/%d", s.WindowLen, s.Config.ReadCount)),
		row("Cooldown", fmt.Sprintf("%d", s.Cooldown)),
		"",
		row("MQTT", mqtt+" "+s.MQTT.Broker),
	}
	if s.Network != nil {
		rows = append(rows, row("Network", strings.TrimSpace(s.Network.Status+" "+s.Network.IP)))
	}
	rows = append(rows,
		"",
		row("Auto / manual", fmt.Sprintf("%d / %d", s.Counts.Auto, s.Counts.Manual)),
		row("Rejected", fmt.Sprintf("%d", s.Counts.Rejected)),
		row("Uptime", (time.Duration(s.UptimeSeconds) * time.Second).String()),
	)

	return boxSty.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleSty.Render("proximity-switch"),
		strings.Join(rows, "\n"),
	))
}
