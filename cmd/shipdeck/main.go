package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"shipdeck/internal/api"
	"shipdeck/internal/config"
	"shipdeck/internal/domain"
	"shipdeck/internal/resource"
	"shipdeck/internal/transcript"
	"shipdeck/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var (
	flagServer string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shipdeck",
	Short: "Terminal dashboard for the delivery pipeline",
	Long:  "shipdeck renders the delivery pipeline as a kanban board and lets you approve, reject, retry, and watch agent runs from the terminal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tui.Run(newClient(), cfg.PollInterval())
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "backend API base URL (overrides config)")
	rootCmd.Version = version

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(actionCmd("approve", "Approve the delivery's current gate phase"))
	rootCmd.AddCommand(rejectCmd())
	rootCmd.AddCommand(actionCmd("cancel", "Cancel the delivery's running phase"))
	rootCmd.AddCommand(actionCmd("retry", "Retry the delivery's failed phase"))
	rootCmd.AddCommand(triggerCmd("plan", "generate-plan", "Generate a plan for the delivery"))
	rootCmd.AddCommand(triggerCmd("implement", "run-implement", "Run the implementation agent"))
	rootCmd.AddCommand(triggerCmd("review", "run-review", "Run the review agent"))
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(workersCmd())

	cobra.OnInitialize(initConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	loaded, err := config.LoadFrom(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
	}
	cfg = loaded
	if flagServer != "" {
		cfg.Server = flagServer
	}
}

func newClient() *api.Client {
	return api.NewClient(cfg.ServerOrDefault())
}

func listCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := resource.NewCollection(newClient())
			if err := collection.Refresh(cmd.Context()); err != nil {
				return err
			}
			deliveries := collection.Deliveries()
			if activeOnly {
				deliveries = collection.Active()
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Seq", "ID", "Phase", "Status", "Summary", "Repository", "Updated"})
			for _, d := range deliveries {
				tw.AppendRow(table.Row{
					d.Seq, d.ID, d.Phase, d.RunStatus,
					clip(d.Summary, 48), d.Repository,
					d.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "hide terminal deliveries")
	return cmd
}

func showCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := resource.NewHandle(newClient(), args[0])
			if err := handle.Refresh(cmd.Context()); err != nil {
				return err
			}
			if wait {
				if err := handle.PollWhileRunning(cmd.Context(), cfg.PollInterval()); err != nil {
					return err
				}
			}
			d, _ := handle.Delivery()
			printDelivery(d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the running phase concludes")
	return cmd
}

func actionCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := resource.NewHandle(newClient(), args[0])
			var err error
			switch name {
			case "approve":
				err = handle.Approve(cmd.Context())
			case "cancel":
				err = handle.Cancel(cmd.Context())
			case "retry":
				err = handle.Retry(cmd.Context())
			}
			return reportAction(handle, name, err)
		},
	}
}

func rejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject the delivery's current gate phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := resource.NewHandle(newClient(), args[0])
			err := handle.Reject(cmd.Context(), reason)
			return reportAction(handle, "reject", err)
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "rejection reason")
	return cmd
}

func triggerCmd(name, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := resource.NewHandle(newClient(), args[0])
			err := handle.Trigger(cmd.Context(), action)
			return reportAction(handle, name, err)
		},
	}
}

// reportAction prints the refreshed state after a mutation. The refresh
// happens inside the handle even when the mutation failed, so the printed
// phase/status reflect whatever the backend actually applied.
func reportAction(handle *resource.Handle, name string, err error) error {
	if d, ok := handle.Delivery(); ok {
		fmt.Printf("%s: phase=%s status=%s\n", d.ID, d.Phase, d.RunStatus)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Tail the live event stream of a running delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := newClient().OpenStream(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer stream.Close()
			for ev := range stream.Events() {
				if text, ok := transcript.EventText(ev); ok {
					fmt.Println(text)
				}
			}
			if stream.Outcome() == api.StreamErrored {
				return fmt.Errorf("stream connection lost")
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <id> <run-id>",
		Short: "Print the archived event log of a completed run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newClient().StreamLog(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(transcript.RenderLog(log))
			return nil
		},
	}
}

func sourcesCmd() *cobra.Command {
	var noSync bool
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the repositories feeding the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			if !noSync {
				if err := client.SyncSources(cmd.Context()); err != nil {
					return err
				}
			}
			sources, err := client.Sources(cmd.Context())
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Repository", "Active", "Ends At", "Gates", "Last Polled"})
			for _, s := range sources {
				polled := "never"
				if !s.LastPolledAt.IsZero() {
					polled = s.LastPolledAt.Format("2006-01-02 15:04")
				}
				tw.AppendRow(table.Row{
					s.ID, s.Owner + "/" + s.Repo, s.Active,
					s.Endpoint, joinPhases(s.Checkpoints), polled,
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "skip the poll-now request before listing")
	cmd.AddCommand(sourceAddCmd())
	cmd.AddCommand(sourceRmCmd())
	cmd.AddCommand(sourceSetActiveCmd("enable", true))
	cmd.AddCommand(sourceSetActiveCmd("disable", false))
	return cmd
}

func sourceAddCmd() *cobra.Command {
	var owner, repo, token, endpoint string
	var checkpoints []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a repository as a delivery source",
		RunE: func(cmd *cobra.Command, args []string) error {
			create := domain.SourceCreate{
				Type:     "github",
				Owner:    owner,
				Repo:     repo,
				Token:    token,
				Endpoint: domain.Phase(endpoint),
			}
			for _, c := range checkpoints {
				create.Checkpoints = append(create.Checkpoints, domain.Phase(c))
			}
			return newClient().CreateSource(cmd.Context(), create)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "repository name")
	cmd.Flags().StringVar(&token, "token", "", "access token for polling")
	cmd.Flags().StringVar(&endpoint, "endpoint", string(domain.PhaseClose), "phase deliveries stop at")
	cmd.Flags().StringSliceVar(&checkpoints, "checkpoint", nil, "gate phase (repeatable)")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("repo")
	cmd.MarkFlagRequired("token")
	return cmd
}

func sourceRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteSource(cmd.Context(), args[0])
		},
	}
}

func sourceSetActiveCmd(name string, active bool) *cobra.Command {
	short := "Resume polling for a source"
	if !active {
		short = "Pause polling for a source"
	}
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().UpdateSource(cmd.Context(), args[0], domain.SourceUpdate{Active: &active})
		},
	}
}

func workersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "Show the backend's background poller status",
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := newClient().WorkerStatus(cmd.Context())
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Worker", "Enabled", "Interval", "Last Poll", "Last Error"})
			for _, w := range workers {
				poll := "never"
				if !w.LastPollAt.IsZero() {
					poll = w.LastPollAt.Format("2006-01-02 15:04")
				}
				tw.AppendRow(table.Row{w.Label, w.Enabled, w.Interval, poll, w.LastError})
			}
			tw.Render()
			return nil
		},
	}
}

func joinPhases(phases []domain.Phase) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

func printDelivery(d domain.Delivery) {
	fmt.Printf("#%d %s\n", d.Seq, d.Summary)
	fmt.Printf("id: %s  phase: %s  status: %s\n", d.ID, d.Phase, d.RunStatus)
	fmt.Printf("repository: %s  updated: %s\n", d.Repository, d.UpdatedAt.Format("2006-01-02 15:04"))
	if d.Endpoint != "" {
		fmt.Printf("ends at: %s\n", d.Endpoint)
	}
	if d.Error != "" {
		fmt.Printf("last error: %s\n", d.Error)
	}
	if len(d.Refs) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Role", "Type", "Label", "URL"})
		for _, ref := range d.Refs {
			tw.AppendRow(table.Row{ref.Role, ref.Type, ref.Label, ref.URL})
		}
		tw.Render()
	}
	if len(d.PhaseRuns) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Phase", "Status", "Executor", "Verdict", "Started"})
		for _, pr := range d.PhaseRuns {
			started := ""
			if !pr.StartedAt.IsZero() {
				started = pr.StartedAt.Format("2006-01-02 15:04")
			}
			tw.AppendRow(table.Row{pr.Phase, pr.RunStatus, pr.Executor, pr.Verdict, started})
		}
		tw.Render()
	}
	if len(d.Runs) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Run", "Mode", "Status", "Model", "Cost", "Tokens", "Duration"})
		for _, run := range d.Runs {
			tw.AppendRow(table.Row{
				run.ID, run.Mode, run.Status, run.Model,
				fmt.Sprintf("$%.2f", run.Stats.CostUSD),
				fmt.Sprintf("%d/%d", run.Stats.InputTokens, run.Stats.OutputTokens),
				fmt.Sprintf("%.1fs", run.Stats.Duration.Seconds()),
			})
		}
		tw.Render()
	}
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
