package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-freight/internal/camera"
	"github.com/litescript/ls-freight/internal/report"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/telemetry"
)

const panelWidth = 34

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			Width(panelWidth)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
)

// detailsPanel describes what the overlay shows for a selection.
type detailsPanel struct {
	track    shipment.Track
	env      *telemetry.Sample
	mode     camera.Mode
	tracking bool
	globe    bool
	now      time.Time
}

func (d detailsPanel) render() string {
	t := d.track
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color())).Bold(true)

	var b strings.Builder
	b.WriteString(panelTitle.Render("Shipment #" + t.ID))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(t.Status.Label()))
	if t.Shipment.Carrier != "" {
		b.WriteString(dimStyle.Render(" · " + t.Shipment.Carrier))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s → %s\n", orDash(t.Shipment.Origin), orDash(t.Shipment.Destination))
	b.WriteString(progressBar(t.Progress, panelWidth-8))
	fmt.Fprintf(&b, " %3.0f%%\n", t.Progress*100)

	if t.Routed {
		fmt.Fprintf(&b, "Distance  %s\n", report.FormatDistance(t.DistanceKm()))
	} else {
		b.WriteString(dimStyle.Render("No coordinates for this route"))
		b.WriteString("\n")
	}
	if eta := t.Shipment.EstimatedDelivery; !eta.IsZero() {
		fmt.Fprintf(&b, "ETA       %s\n", formatETA(eta, d.now))
	}

	if d.env != nil {
		e := *d.env
		b.WriteString("\n")
		fmt.Fprintf(&b, "Temp %5.1f°C   Hum %3.0f%%\n", e.Temperature, e.Humidity)
		fmt.Fprintf(&b, "Batt %5.0f%%    Sig %3.0f%%\n", e.BatteryLevel, e.SignalStrength)
		b.WriteString(lipgloss.NewStyle().Foreground(colorForHealth(e.Health)).Render("Health " + string(e.Health)))
		b.WriteString("\n")
	}

	if d.globe {
		b.WriteString("\n")
		switch {
		case d.mode == camera.ModeTracking:
			b.WriteString(lipgloss.NewStyle().Foreground(colorSelected).Render("◎ tracking"))
		case d.tracking:
			b.WriteString(dimStyle.Render("tracking on · no route to follow"))
		default:
			b.WriteString(dimStyle.Render("t: follow this shipment"))
		}
	}

	return panelStyle.Render(b.String())
}

// fallbackPanel is shown when the globe assets failed to load.
func fallbackPanel(err error, tracks []shipment.Track, width int) string {
	var b strings.Builder
	b.WriteString(errorStyle.Bold(true).Render("3D map unavailable"))
	b.WriteString("\n")
	if err != nil {
		b.WriteString(dimStyle.Render(err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, t := range tracks {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color()))
		fmt.Fprintf(&b, "%s %-8s %s → %s\n",
			style.Render("●"), "#"+t.ID, orDash(t.Shipment.Origin), orDash(t.Shipment.Destination))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("r: retry · tab: flat map"))

	w := width - 4
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return panelStyle.Width(w).Render(b.String())
}

func progressBar(p float64, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(p*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func formatETA(eta, now time.Time) string {
	d := eta.Sub(now).Round(time.Hour)
	switch {
	case d < 0:
		return fmt.Sprintf("%s (%dh ago)", eta.Format("Jan 2"), int(-d.Hours()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%s (in %dh)", eta.Format("Jan 2"), int(d.Hours()))
	default:
		return fmt.Sprintf("%s (in %dd)", eta.Format("Jan 2"), int(d.Hours()/24))
	}
}

func colorForHealth(h telemetry.Health) lipgloss.Color {
	switch h {
	case telemetry.HealthGood:
		return lipgloss.Color(shipment.ColorDelivered)
	case telemetry.HealthWarning:
		return lipgloss.Color(shipment.ColorPending)
	case telemetry.HealthCritical:
		return lipgloss.Color(shipment.ColorDelayed)
	default:
		return lipgloss.Color(shipment.ColorNeutral)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
