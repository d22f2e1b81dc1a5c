package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/tend/internal/app"
)

func (c *CLI) newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background daemon",
	}

	cmd.AddCommand(c.newDaemonRunCmd())
	cmd.AddCommand(c.newDaemonStartCmd())
	cmd.AddCommand(c.newDaemonStopCmd())

	return cmd
}

func (c *CLI) newDaemonRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return c.app.Serve(cmd.Context(), app.ServeOptions{
				Root:       c.root,
				ConfigPath: configPath,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to the configuration file (default <root>/tend.yaml)")
	return cmd
}

func (c *CLI) newDaemonStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			pid, err := c.app.Start(cmd.Context(), app.StartOptions{
				Root:       c.root,
				ConfigPath: configPath,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "daemon started (pid %d)\n", pid)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to the configuration file (default <root>/tend.yaml)")
	return cmd
}

func (c *CLI) newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pid, err := c.app.Stop(cmd.Context(), c.root)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "daemon stopped (pid %d)\n", pid)
			return nil
		},
	}
}
