package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt_InterpolatesNestedPath(t *testing.T) {
	ctx := map[string]any{
		"repo": map[string]any{"name": "forge", "owner": map[string]any{"login": "octo"}},
	}
	got := RenderPrompt("review {{repo.name}} for {{repo.owner.login}}", ctx)
	assert.Equal(t, "review forge for octo", got)
}

func TestRenderPrompt_LeavesUnresolvedReferencesLiteral(t *testing.T) {
	ctx := map[string]any{"repo": map[string]any{"name": "forge"}}
	got := RenderPrompt("{{repo.name}} / {{repo.missing}} / {{totally.unknown}}", ctx)
	assert.Equal(t, "forge / {{repo.missing}} / {{totally.unknown}}", got)
}

func TestRenderPrompt_NoPlaceholders(t *testing.T) {
	got := RenderPrompt("plain text prompt", map[string]any{})
	assert.Equal(t, "plain text prompt", got)
}

func TestRenderPrompt_PathThroughNonMapValueUnresolved(t *testing.T) {
	ctx := map[string]any{"repo": "forge"}
	got := RenderPrompt("{{repo.name}}", ctx)
	assert.Equal(t, "{{repo.name}}", got)
}

func TestBuildArgs_SmallPromptInline(t *testing.T) {
	def := &AgentDefinition{Command: "claude", Model: "claude-opus", AllowedTools: "Read,Write"}
	args := buildArgs(def, "short prompt", "/scratch/prompt.md")
	assert.Equal(t, []string{"--model", "claude-opus", "--allowed-tools", "Read,Write", "--prompt", "short prompt"}, args)
}

func TestBuildArgs_LargePromptUsesPromptFile(t *testing.T) {
	def := &AgentDefinition{Command: "claude"}
	big := make([]byte, maxInlinePromptBytes+1)
	args := buildArgs(def, string(big), "/scratch/prompt.md")
	assert.Equal(t, []string{"--prompt-file", "/scratch/prompt.md"}, args)
}

func TestBuildArgs_NoModelOrAllowedTools(t *testing.T) {
	def := &AgentDefinition{Command: "claude"}
	args := buildArgs(def, "hi", "/scratch/prompt.md")
	assert.Equal(t, []string{"--prompt", "hi"}, args)
}
