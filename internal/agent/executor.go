package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/forge-run/forge/internal/pipeline"
)

// templateVarRe matches {{a.b.c}} placeholders in a job's prompt text.
var templateVarRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// RenderPrompt interpolates {{a.b.c}} references in template against ctx,
// walking nested maps one dotted segment at a time. A reference that does
// not resolve (missing key, or a path through a non-map value) is left
// exactly as written.
func RenderPrompt(template string, ctx map[string]any) string {
	return templateVarRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := templateVarRe.FindStringSubmatch(match)
		val, ok := lookupPath(ctx, strings.Split(sub[1], "."))
		if !ok {
			return match
		}
		return fmt.Sprint(val)
	})
}

func lookupPath(ctx map[string]any, path []string) (any, bool) {
	var cur any = ctx
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Executor is implemented by both the real subprocess-spawning Execute
// function (via DefaultExecutor) and MockExecutor, so the scheduler depends
// on this interface rather than a concrete type.
type Executor interface {
	Execute(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError)
}

// DefaultExecutor is the production Executor, delegating to the package-level
// Execute function.
type DefaultExecutor struct{}

func (DefaultExecutor) Execute(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError) {
	return Execute(ctx, job, runCtx, opts)
}

// scratchFileNames are the fixed filenames materialized in every
// execution's scratch directory.
const (
	contextFileName = "context.json"
	promptFileName  = "prompt.md"
	outputFileName  = "output.json"
)

// workerInstructions is prepended to every rendered prompt. It is the
// executor's half of its contract with worker processes: where to read the
// run's context snapshot and where to write the result so Execute can parse
// it back out once the worker exits.
const workerInstructions = `Before responding, read ` + contextFileName + ` in your working directory for the ` +
	`run's current context values. When you are done, write your final result as a single JSON ` +
	`object to the file named by the FORGE_OUTPUT_FILE environment variable. Do not print the ` +
	`JSON result to stdout; write it only to that file.

---

`

// Execute runs one job invocation end to end: resolve its AgentDefinition,
// render its prompt, materialize a scratch directory, spawn the worker
// subprocess with a per-job timeout and process-group isolation, observe a
// progress marker non-blockingly, await the outcome, parse the worker's
// output file, and remove the scratch directory on every exit path.
func Execute(ctx context.Context, job pipeline.Job, runCtx map[string]any, opts ExecuteOptions) (*JobResult, *pipeline.EngineError) {
	def, err := ResolveDefinition(opts.AgentsDir, job.Agent)
	if err != nil {
		return nil, pipeline.WrapEngineError(pipeline.AgentNotFound, fmt.Sprintf("resolving agent %q", job.Agent), err)
	}

	promptText := job.Prompt
	if promptText == "" {
		promptText = job.Task
	}
	rendered := workerInstructions + RenderPrompt(promptText, runCtx)

	scratchDir := filepath.Join(opts.ScratchRoot, opts.RunID, fmt.Sprintf("%s-%d", job.ID, opts.Attempt))
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "creating scratch directory", err)
	}
	defer os.RemoveAll(scratchDir)

	contextJSON, err := json.MarshalIndent(runCtx, "", "  ")
	if err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "marshalling context snapshot", err)
	}
	if err := os.WriteFile(filepath.Join(scratchDir, contextFileName), contextJSON, 0o644); err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "writing context snapshot", err)
	}

	promptPath := filepath.Join(scratchDir, promptFileName)
	if err := os.WriteFile(promptPath, []byte(rendered), 0o644); err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "writing rendered prompt", err)
	}
	outputPath := filepath.Join(scratchDir, outputFileName)

	if err := materializeResources(opts.AgentsDir, def, scratchDir); err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "materializing agent resources", err)
	}

	promptHash := fmt.Sprintf("%x", xxhash.Sum64(append([]byte(rendered), contextJSON...)))

	runCtxDeadline := ctx
	var cancelTimeout context.CancelFunc
	if opts.Timeout > 0 {
		runCtxDeadline, cancelTimeout = context.WithTimeout(ctx, opts.Timeout)
		defer cancelTimeout()
	}

	cmd := buildCommand(runCtxDeadline, def, rendered, promptPath, outputPath, scratchDir, opts)

	grace := opts.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	setProcGroup(cmd, grace)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "creating stdout pipe", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "creating stderr pipe", err)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tee := io.TeeReader(stdoutPipe, &stdoutBuf)
		scanProgress(tee, opts.Progress)
	}()
	go func() {
		defer wg.Done()
		_, _ = stderrBuf.ReadFrom(stderrPipe)
	}()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		wg.Wait()
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "starting worker", err)
	}

	wg.Wait()
	waitErr := cmd.Wait()
	duration := time.Since(start)

	if errors.Is(runCtxDeadline.Err(), context.DeadlineExceeded) {
		return nil, pipeline.NewEngineError(pipeline.Timeout, fmt.Sprintf("job %q exceeded its timeout", job.ID))
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, pipeline.NewEngineError(pipeline.Cancelled, fmt.Sprintf("job %q was cancelled", job.ID))
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "waiting for worker", waitErr)
		}
	}

	result := &JobResult{
		ExitCode:   exitCode,
		Duration:   duration,
		PromptHash: promptHash,
		ScratchDir: scratchDir,
	}

	if exitCode != 0 {
		return nil, pipeline.WrapEngineError(pipeline.WorkerFailed,
			fmt.Sprintf("job %q exited %d", job.ID, exitCode),
			fmt.Errorf("stderr: %s", strings.TrimSpace(stderrBuf.String())))
	}

	output, err := os.ReadFile(outputPath)
	switch {
	case err == nil:
		if !json.Valid(output) {
			return nil, pipeline.NewEngineError(pipeline.WorkerOutputInvalid, fmt.Sprintf("job %q wrote non-JSON output", job.ID))
		}
		result.Output = string(output)
	case os.IsNotExist(err):
		return nil, pipeline.WrapEngineError(pipeline.WorkerOutputInvalid,
			fmt.Sprintf("job %q wrote no output file", job.ID),
			fmt.Errorf("stderr: %s", strings.TrimSpace(stderrBuf.String())))
	default:
		return nil, pipeline.WrapEngineError(pipeline.InternalExecutorError, "reading worker output", err)
	}

	return result, nil
}

// buildCommand constructs the *exec.Cmd for one execution. Env always
// carries FORGE_OUTPUT_FILE so the worker knows where to write its result.
func buildCommand(ctx context.Context, def *AgentDefinition, rendered, promptPath, outputPath, scratchDir string, opts ExecuteOptions) *exec.Cmd {
	args := buildArgs(def, rendered, promptPath)
	cmd := exec.CommandContext(ctx, def.Command, args...)

	cmd.Dir = scratchDir
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	env := os.Environ()
	if def.Effort != "" {
		env = append(env, "FORGE_AGENT_EFFORT="+def.Effort)
	}
	env = append(env, "FORGE_OUTPUT_FILE="+outputPath)
	env = append(env, opts.Env...)
	cmd.Env = env

	return cmd
}

// buildArgs constructs the worker's argument list. A prompt larger than
// maxInlinePromptBytes is always passed via --prompt-file referencing the
// already-materialized scratch prompt file rather than as a literal
// argument.
func buildArgs(def *AgentDefinition, rendered, promptPath string) []string {
	var args []string

	if def.Model != "" {
		args = append(args, "--model", def.Model)
	}
	if def.AllowedTools != "" {
		args = append(args, "--allowed-tools", def.AllowedTools)
	}

	if len(rendered) > maxInlinePromptBytes {
		args = append(args, "--prompt-file", promptPath)
	} else {
		args = append(args, "--prompt", rendered)
	}

	return args
}

// materializeResources copies every file matched by def's resource globs
// into scratchDir, preserving their relative path under the agents
// directory.
func materializeResources(agentsDir string, def *AgentDefinition, scratchDir string) error {
	if len(def.Resources) == 0 {
		return nil
	}
	matches, err := ResolveResources(agentsDir, def)
	if err != nil {
		return err
	}
	for _, rel := range matches {
		src := filepath.Join(agentsDir, rel)
		dst := filepath.Join(scratchDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
