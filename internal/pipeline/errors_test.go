package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineError_ErrorMessage_WithoutCause(t *testing.T) {
	err := NewEngineError(AgentNotFound, "agent \"claude\" is not defined")
	assert.Equal(t, `agent_not_found: agent "claude" is not defined`, err.Error())
}

func TestEngineError_ErrorMessage_WithCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapEngineError(StatePersistenceError, "failed to save run state", cause)
	assert.Contains(t, err.Error(), "state_persistence_error")
	assert.Contains(t, err.Error(), "failed to save run state")
	assert.Contains(t, err.Error(), "disk full")
}

func TestEngineError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapEngineError(WorkerFailed, "job exited non-zero", cause)
	assert.ErrorIs(t, err, cause)
}

func TestEngineError_UnwrapNilWhenNoCause(t *testing.T) {
	err := NewEngineError(Timeout, "job exceeded its deadline")
	assert.Nil(t, err.Unwrap())
}
