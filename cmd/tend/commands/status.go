package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon status, or the last snapshot when it is down",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Status(cmd.Context(), c.root)
			if err != nil {
				return err
			}
			newRenderer(cmd.OutOrStdout()).status(report)
			return nil
		},
	}
}

func (c *CLI) newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the live health snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			snap, err := c.app.Health(cmd.Context(), c.root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, snap); err != nil {
					return err
				}
			} else {
				r := newRenderer(out)
				r.health(snap)
				r.handlers(snap.Handlers)
			}

			if !snap.IsHealthy {
				return zerr.With(zerr.Wrap(domain.ErrDaemonUnhealthy, "health check failed"), "status_code", snap.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the snapshot as JSON")
	return cmd
}

func (c *CLI) newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print daemon metrics in the line exposition format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if asJSON {
				rep, err := c.app.Metrics(cmd.Context(), c.root)
				if err != nil {
					return err
				}
				return writeJSON(out, rep)
			}

			text, err := c.app.MetricsText(cmd.Context(), c.root)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, text)
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print the structured report as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return zerr.Wrap(err, "failed to encode output")
	}
	return nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3fs", s)
}

func formatUptime(seconds float64) string {
	return (time.Duration(seconds) * time.Second).String()
}
