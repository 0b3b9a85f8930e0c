package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/forge-run/forge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect and validate forge configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration with source annotations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		printResolvedConfig(cmd, resolved)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		result := config.Validate(resolved.Config, meta)
		printValidationResult(cmd, result)
		if result.HasErrors() {
			return fmt.Errorf("configuration has %d error(s)", len(result.Errors()))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleSection   = lipgloss.NewStyle().Bold(true)
	styleErrorLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarnLbl   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleSuccess   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleSourceVal = map[config.ConfigSource]lipgloss.Style{
		config.SourceFile:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		config.SourceEnv:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		config.SourceCLI:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		config.SourceDefault: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

const fieldWidth = 24

func printResolvedConfig(cmd *cobra.Command, rc *config.ResolvedConfig) {
	out := cmd.OutOrStdout()

	title := "Configuration"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[engine]"))
	e := rc.Config.Engine
	printField(out, "max_concurrent_jobs", fmt.Sprint(e.MaxConcurrentJobs), rc.Sources["engine.max_concurrent_jobs"])
	printField(out, "default_timeout_ms", fmt.Sprint(e.DefaultTimeoutMs), rc.Sources["engine.default_timeout_ms"])
	printField(out, "scratch_root", fmt.Sprintf("%q", e.ScratchRoot), rc.Sources["engine.scratch_root"])
	printField(out, "state_dir", fmt.Sprintf("%q", e.StateDir), rc.Sources["engine.state_dir"])
	printField(out, "worker_grace_period_ms", fmt.Sprint(e.WorkerGracePeriodMs), rc.Sources["engine.worker_grace_period_ms"])
	printField(out, "agents_dir", fmt.Sprintf("%q", rc.Config.AgentsDir), rc.Sources["agents_dir"])
	fmt.Fprintln(out)

	if len(rc.Config.Agents) > 0 {
		names := make([]string, 0, len(rc.Config.Agents))
		for n := range rc.Config.Agents {
			names = append(names, n)
		}
		sort.Strings(names)

		for _, name := range names {
			a := rc.Config.Agents[name]
			prefix := "agents." + name
			fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[agents.%s]", name)))
			printField(out, "command", fmt.Sprintf("%q", a.Command), rc.Sources[prefix+".command"])
			printField(out, "model", fmt.Sprintf("%q", a.Model), rc.Sources[prefix+".model"])
			printField(out, "effort", fmt.Sprintf("%q", a.Effort), rc.Sources[prefix+".effort"])
			printField(out, "allowed_tools", fmt.Sprintf("%q", a.AllowedTools), rc.Sources[prefix+".allowed_tools"])
			fmt.Fprintln(out)
		}
	}
}

func printField(out io.Writer, name, value string, src config.ConfigSource) {
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	style, ok := styleSourceVal[src]
	if !ok {
		style = styleSourceVal[config.SourceDefault]
	}
	srcLabel := style.Render(fmt.Sprintf("(source: %s)", src))
	fmt.Fprintf(out, "%s = %-30s %s\n", padded, value, srcLabel)
}

func printValidationResult(cmd *cobra.Command, result *config.ValidationResult) {
	out := cmd.OutOrStdout()

	title := "Configuration Validation"
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", len(errs), len(warns))
}
