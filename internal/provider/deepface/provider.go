package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider"
)

// Provider implements provider.Backbone using DeepFace API
type Provider struct {
	client *Client
	model  string
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
		model:  config.Model,
	}
}

// Model returns the DeepFace recognition model producing the embeddings
func (p *Provider) Model() string {
	return p.model
}

// Embed returns the embedding of the largest face in image.
// DeepFace may detect several faces; the largest one is the subject of a
// verification photo.
func (p *Provider) Embed(ctx context.Context, image []byte) ([]float64, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}

	resp, err := p.client.Represent(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", translateError(err))
	}

	if len(resp.Results) == 0 {
		return nil, domain.ErrNoFaceDetected.WithError(ErrNoFaceInResponse)
	}

	best := resp.Results[0]
	for _, r := range resp.Results[1:] {
		if r.FacialArea.Area() > best.FacialArea.Area() {
			best = r
		}
	}

	if len(best.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return best.Embedding, nil
}

// translateError maps DeepFace client errors onto domain errors
func translateError(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode >= 500 {
		return err
	}

	if strings.Contains(strings.ToLower(statusErr.Body), "face could not be detected") {
		return domain.ErrNoFaceDetected.WithError(err)
	}
	return domain.ErrInvalidImage.WithError(err)
}

// Ensure Provider implements provider.Backbone
var _ provider.Backbone = (*Provider)(nil)
