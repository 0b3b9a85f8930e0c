package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forge-run/forge/internal/pipeline"
)

// RunSummary is the lightweight record List returns, avoiding a full
// RunState decode (and its per-job state) when callers only need an
// overview table.
type RunSummary struct {
	RunID     string             `json:"runId"`
	Pipeline  string             `json:"pipeline"`
	Status    pipeline.RunStatus `json:"status"`
	UpdatedAt time.Time          `json:"updatedAt"`
	JobCount  int                `json:"jobCount"`
}

// StateStore persists RunState records as indented JSON files, one per run,
// under a single directory. A mutex serializes writes within this process;
// the write-to-temp-then-rename pattern keeps readers (including other
// processes) from ever observing a partially written file.
type StateStore struct {
	mu  sync.Mutex
	dir string
}

// New returns a StateStore rooted at dir, creating it if necessary.
func New(dir string) (*StateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state store directory %q: %w", dir, err)
	}
	return &StateStore{dir: dir}, nil
}

func (s *StateStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save atomically replaces the on-disk record for rs.RunID, stamping
// UpdatedAt to the current time first.
func (s *StateStore) Save(rs *pipeline.RunState) error {
	if rs == nil || rs.RunID == "" {
		return fmt.Errorf("saving run state: run ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rs.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling run state %q: %w", rs.RunID, err)
	}

	final := s.path(rs.RunID)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp state file %q: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing run state %q: %w", rs.RunID, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing run state %q: %w", rs.RunID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp state file %q: %w", tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp state file to %q: %w", final, err)
	}

	return nil
}

// Load reads the persisted RunState for runID.
func (s *StateStore) Load(runID string) (*pipeline.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(runID)
}

func (s *StateStore) load(runID string) (*pipeline.RunState, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pipeline.NewEngineError(pipeline.UnknownRun, fmt.Sprintf("no run state for %q", runID))
		}
		return nil, fmt.Errorf("reading run state %q: %w", runID, err)
	}

	var rs pipeline.RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decoding run state %q: %w", runID, err)
	}
	return &rs, nil
}

// List enumerates every persisted run as a RunSummary, sorted by UpdatedAt
// descending so the caller's head-of-list entry is the most recent run.
func (s *StateStore) List() ([]RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing state store directory %q: %w", s.dir, err)
	}

	var summaries []RunSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		runID := strings.TrimSuffix(e.Name(), ".json")
		rs, err := s.load(runID)
		if err != nil {
			continue
		}
		summaries = append(summaries, RunSummary{
			RunID:     rs.RunID,
			Pipeline:  rs.Pipeline,
			Status:    rs.Status,
			UpdatedAt: rs.UpdatedAt,
			JobCount:  len(rs.Jobs),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

// LatestRun returns the most recently updated run, or nil if none exist.
func (s *StateStore) LatestRun() (*pipeline.RunState, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return s.Load(summaries[0].RunID)
}

// Delete removes a run's persisted record. Deleting a run that does not
// exist is not an error.
func (s *StateStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting run state %q: %w", runID, err)
	}
	return nil
}
