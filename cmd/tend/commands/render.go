package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/tend/internal/app"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/ui/output"
	"go.trai.ch/tend/internal/ui/style"
)

// renderer writes human-readable reports with styles bound to one writer.
type renderer struct {
	w       io.Writer
	title   lipgloss.Style
	label   lipgloss.Style
	healthy lipgloss.Style
	failing lipgloss.Style
	notice  lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	profile := output.ProfileFor(w)
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &renderer{
		w:       w,
		title:   style.Title.Renderer(r),
		label:   style.Label.Renderer(r),
		healthy: style.Healthy.Renderer(r),
		failing: style.Failing.Renderer(r),
		notice:  style.Notice.Renderer(r),
	}
}

func (r *renderer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *renderer) field(name, value string) {
	r.line("  %s %s", r.label.Render(fmt.Sprintf("%-8s", name)), value)
}

func (r *renderer) status(report *app.StatusReport) {
	r.line("%s", r.title.Render("tend daemon"))
	r.field("root", report.Root)

	if report.Running {
		r.field("pid", fmt.Sprint(report.PID))
		r.health(report.Health)
		r.handlers(report.Health.Handlers)
		return
	}

	r.field("state", r.notice.Render(style.Circle+" not running"))
	if report.Last == nil {
		r.line("")
		r.line("%s", r.label.Render("no snapshot recorded"))
		return
	}

	last := report.Last
	r.line("")
	r.line("%s", r.title.Render("last snapshot"))
	r.field("taken", last.TakenAt.UTC().Format(time.RFC3339))
	r.field("session", last.SessionID)
	r.field("state", string(last.Metrics.State))
	r.verdict(last.Health.IsHealthy)
	r.reports(last.Metrics.Handlers)
}

func (r *renderer) health(snap *domain.HealthSnapshot) {
	r.field("state", string(snap.Daemon.State))
	r.field("uptime", formatUptime(snap.Daemon.Uptime))
	r.verdict(snap.IsHealthy)
}

func (r *renderer) verdict(healthy bool) {
	if healthy {
		r.field("health", r.healthy.Render(style.Check+" healthy"))
		return
	}
	r.field("health", r.failing.Render(style.Cross+" unhealthy"))
}

func (r *renderer) handlers(hs map[string]domain.HandlerHealth) {
	if len(hs) == 0 {
		return
	}
	r.line("")
	r.line("%s", r.title.Render("handlers"))

	names := slices.Sorted(maps.Keys(hs))
	width := longest(names)
	for _, name := range names {
		h := hs[name]
		status := h.Status
		if status == "" {
			status = domain.HandlerHealthy
			if !h.IsHealthy {
				status = domain.HandlerUnhealthy
			}
		}

		parts := []string{
			r.badge(status),
			fmt.Sprintf("%-*s", width, name),
			fmt.Sprintf("%-9s", status),
			fmt.Sprintf("processed %d", h.EventsProcessed),
			fmt.Sprintf("failed %d", h.EventsFailed),
			"avg " + formatSeconds(h.AvgProcessingTime),
		}
		if h.Reason != "" {
			parts = append(parts, r.label.Render(h.Reason))
		}
		r.line("  %s", strings.Join(parts, "  "))
	}
}

func (r *renderer) reports(hs map[string]domain.HandlerReport) {
	if len(hs) == 0 {
		return
	}
	r.line("")
	r.line("%s", r.title.Render("handlers"))

	names := slices.Sorted(maps.Keys(hs))
	width := longest(names)
	for _, name := range names {
		p := hs[name].Performance
		r.line("  %-*s  %-8s  processed %d  failed %d  avg %s  max %s",
			width, name, hs[name].HandlerType,
			p.EventsProcessed, p.EventsFailed,
			formatSeconds(p.AvgProcessingTimeSeconds), formatSeconds(p.MaxProcessingTimeSeconds))
	}
}

func (r *renderer) badge(status domain.HandlerStatus) string {
	switch status {
	case domain.HandlerHealthy:
		return r.healthy.Render(style.Check)
	case domain.HandlerDegraded:
		return r.notice.Render(style.Warning)
	default:
		return r.failing.Render(style.Cross)
	}
}

func longest(names []string) int {
	n := 0
	for _, s := range names {
		n = max(n, len(s))
	}
	return n
}
