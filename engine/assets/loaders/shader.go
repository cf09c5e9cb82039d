package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-gpu/engine/core"
)

type ShaderLoader struct{}

// Load reads a shader stage from disk. Both SPIR-V binaries and text sources
// are returned as-is; the backend decides what it accepts.
func (sl *ShaderLoader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("shader %s is empty: %w", path, core.ErrInvalidArgument)
	}
	return data, nil
}
