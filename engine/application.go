package engine

import (
	"fmt"

	"github.com/spaghettifunk/anima-gpu/engine/config"
	"github.com/spaghettifunk/anima-gpu/engine/core"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/headless"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-gpu/engine/renderer/vulkan"
)

// ApplicationConfig is re-exported so games only import the engine package.
type ApplicationConfig = config.ApplicationConfig

// LoadApplicationConfig reads path, or returns the defaults when path is empty.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newBackend(kind metadata.RendererBackendType) (metadata.RendererBackend, error) {
	switch kind {
	case metadata.RendererBackendVulkan:
		return vulkan.New(), nil
	case metadata.RendererBackendHeadless:
		return headless.New(), nil
	default:
		return nil, fmt.Errorf("unknown renderer backend %q: %w", kind, core.ErrInvalidArgument)
	}
}

func backendConfig(cfg *ApplicationConfig) *metadata.RendererBackendConfig {
	return &metadata.RendererBackendConfig{
		ApplicationName: cfg.Name,
		Debug:           cfg.Validation,
		Width:           cfg.StartWidth,
		Height:          cfg.StartHeight,
	}
}
