package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads and decodes a Pipeline document from path, then runs it
// through Validate. External schema formats (YAML, templated CI dialects)
// are out of scope; this only covers the canonical JSON shape Pipeline's
// own UnmarshalJSON already understands.
func LoadFile(path string) (*Pipeline, *EngineError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapEngineError(InvalidPipeline, fmt.Sprintf("reading pipeline file %q", path), err)
	}

	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, WrapEngineError(InvalidPipeline, fmt.Sprintf("parsing pipeline file %q", path), err)
	}

	if verr := Validate(&p); verr != nil {
		return nil, verr
	}
	return &p, nil
}
