package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/samijaber1/aegis-watch/internal/model"
)

var (
	colorRed    = lipgloss.Color("#EF4444")
	colorOrange = lipgloss.Color("#F97316")
	colorYellow = lipgloss.Color("#F59E0B")
	colorCyan   = lipgloss.Color("#06B6D4")
	colorGreen  = lipgloss.Color("#10B981")
	colorDim    = lipgloss.Color("#6B7280")

	cardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// Console prints alerts to a terminal
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	colors bool
}

// NewConsole creates a console channel writing to out
func NewConsole(out io.Writer, colors bool) *Console {
	return &Console{out: out, colors: colors}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Send(_ context.Context, a model.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintln(c.out, c.render(a)); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	return nil
}

func (c *Console) Test(ctx context.Context) error {
	return c.Send(ctx, testAlert(time.Now()))
}

func (c *Console) render(a model.Alert) string {
	header := fmt.Sprintf("[%s] %s", strings.ToUpper(string(a.Severity)), a.Title)
	fields := [][2]string{
		{"Endpoint", a.Endpoint},
		{"Time", a.Timestamp.Format(time.RFC3339)},
		{"Type", string(a.Type)},
	}

	if !c.colors {
		var b strings.Builder
		b.WriteString(header)
		for _, f := range fields {
			fmt.Fprintf(&b, "\n%-9s %s", f[0]+":", f[1])
		}
		b.WriteString("\n\n")
		b.WriteString(a.Description)
		return b.String()
	}

	color := alertColor(a)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(color).Render(header)}
	for _, f := range fields {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-9s", f[0]+":"))+" "+f[1])
	}
	lines = append(lines, "", a.Description)
	return cardStyle.BorderForeground(color).Render(strings.Join(lines, "\n"))
}

func alertColor(a model.Alert) lipgloss.Color {
	if a.Type == model.AlertTypeResolution {
		return colorGreen
	}
	switch a.Severity {
	case model.SeverityCritical:
		return colorRed
	case model.SeverityHigh:
		return colorOrange
	case model.SeverityMedium:
		return colorYellow
	default:
		return colorCyan
	}
}
