package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/events"
	"github.com/forge-run/forge/internal/pipeline"
)

type runFlags struct {
	Context []string // --context k=v, repeatable
	JSON    bool
	Resume  string // --resume <runId>: re-enter scheduling for a persisted, non-terminal run
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <pipeline.json>",
		Short: "Validate and execute a pipeline, streaming events until it terminates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVar(&flags.Context, "context", nil, "Seed initial run context as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the final RunState as JSON instead of a summary")
	cmd.Flags().StringVar(&flags.Resume, "resume", "", "Re-enter scheduling for a persisted, non-terminal run ID instead of starting a new run")

	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func runRun(cmd *cobra.Command, path string, flags runFlags) error {
	p, perr := pipeline.LoadFile(path)
	if perr != nil {
		return fmt.Errorf("run: %w", perr)
	}

	initialContext, err := parseContextFlags(flags.Context)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub, unsubscribe := engine.Events().Subscribe(events.Wildcard)
	defer unsubscribe()

	var runID string
	if flags.Resume != "" {
		runID = flags.Resume
		if rerr := engine.ResumeRun(ctx, runID, p); rerr != nil {
			return fmt.Errorf("run: %w", rerr)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "resumed run %s (pipeline %q)\n", runID, p.Name)
	} else {
		newID, runErr := engine.StartRun(ctx, p, initialContext)
		if runErr != nil {
			return fmt.Errorf("run: %w", runErr)
		}
		runID = newID
		fmt.Fprintf(cmd.ErrOrStderr(), "started run %s (pipeline %q)\n", runID, p.Name)
	}

	go func() {
		<-ctx.Done()
		engine.Cancel(runID)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			if ev.RunID != runID {
				continue
			}
			printEvent(cmd.ErrOrStderr(), ev)
		}
	}()

	engine.Wait(runID)
	unsubscribe()
	<-done

	rs, serr := engine.Status(runID)
	if serr != nil {
		return fmt.Errorf("run: %w", serr)
	}

	if flags.JSON {
		return printRunStateJSON(cmd.OutOrStdout(), rs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s finished: %s\n", rs.RunID, rs.Status)

	switch rs.Status {
	case pipeline.RunFailed:
		return fmt.Errorf("run %s failed", rs.RunID)
	case pipeline.RunCancelled:
		return fmt.Errorf("run %s was cancelled", rs.RunID)
	}
	return nil
}

func printEvent(w io.Writer, ev events.Event) {
	if ev.JobID != "" {
		fmt.Fprintf(w, "[%s] %s job=%s\n", ev.Timestamp.Format("15:04:05.000"), ev.Type, ev.JobID)
	} else {
		fmt.Fprintf(w, "[%s] %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Type)
	}
}

// printRunStateJSON writes rs as indented JSON, used by --json on run and
// status.
func printRunStateJSON(w io.Writer, rs *pipeline.RunState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}

// parseContextFlags turns a list of "key=value" strings into a nested
// context map, splitting dotted keys (e.g. "project.name=demo") into
// nested maps the same way prompt templates address jobs.<id>.output.
func parseContextFlags(kvs []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, kv := range kvs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid --context value %q: expected key=value", kv)
		}
		setNested(out, strings.Split(parts[0], "."), parts[1])
	}
	return out, nil
}

func setNested(m map[string]any, path []string, value string) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	next, ok := m[path[0]].(map[string]any)
	if !ok {
		next = make(map[string]any)
		m[path[0]] = next
	}
	setNested(next, path[1:], value)
}
