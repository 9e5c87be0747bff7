// Package face builds the embedding backbone selected by configuration.
package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/siamese/internal/config"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider/mock"
)

// ProviderType defines supported embedding backbones
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace /represent backbone
	ProviderTypeDeepFace ProviderType = config.ProviderDeepFace
	// ProviderTypeMock is the deterministic hash backbone (dev/test)
	ProviderTypeMock ProviderType = config.ProviderMock
)

// NewBackbone creates a Backbone instance based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR, DEEPFACE_TIMEOUT
func NewBackbone(cfg *config.Config) (provider.Backbone, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceBackbone(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceBackbone fills unset fields from deepface.DefaultConfig
func createDeepFaceBackbone(cfg *config.Config) provider.Backbone {
	dfc := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		dfc.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		dfc.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		dfc.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceTimeout > 0 {
		dfc.Timeout = cfg.DeepFaceTimeout
	}

	return deepface.NewProvider(dfc)
}
