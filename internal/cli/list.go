package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

type listFlags struct {
	JSON bool
}

func newListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known runs and their current status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output run summaries as JSON")
	return cmd
}

func init() {
	rootCmd.AddCommand(newListCmd())
}

func runList(cmd *cobra.Command, flags listFlags) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := newEngine(resolved)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	summaries, lerr := engine.List()
	if lerr != nil {
		return fmt.Errorf("list: %w", lerr)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	out := cmd.OutOrStdout()

	if flags.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Fprintf(out, headerStyle.Render("%-28s %-22s %-10s %-6s %s")+"\n",
		"RUN ID", "PIPELINE", "STATUS", "JOBS", "UPDATED")
	for _, s := range summaries {
		fmt.Fprintf(out, "%-28s %-22s %s %-6d %s\n",
			s.RunID, s.Pipeline, statusStyle(string(s.Status)).Render(fmt.Sprintf("%-10s", s.Status)), s.JobCount,
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
