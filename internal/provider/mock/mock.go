package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider"
)

const (
	embeddingDimension = 512
	minImageSize       = 16
	noiseScale         = 0.1
)

// Provider implementa provider.Backbone para testes e desenvolvimento
//
// Imagens no formato "<identidade>\n<bytes>" recebem um embedding próximo ao
// da identidade, com ruído derivado dos bytes restantes. Sem a quebra de
// linha, a imagem inteira é a identidade.
type Provider struct {
	calls atomic.Int64
}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Model() string {
	return "mock"
}

// Embed gera embedding determinístico baseado no hash da imagem
func (p *Provider) Embed(ctx context.Context, image []byte) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.calls.Add(1)

	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image too small"))
	}

	identity, rest := image, []byte(nil)
	if i := bytes.IndexByte(image, '\n'); i > 0 {
		identity, rest = image[:i], image[i+1:]
	}

	embedding := hashVector(identity)
	if len(rest) > 0 {
		noise := hashVector(rest)
		for i := range embedding {
			embedding[i] += noiseScale * noise[i]
		}
	}

	return normalize(embedding), nil
}

// Calls returns how many times Embed was invoked
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

// hashVector expande o sha256 dos dados em um vetor com componentes em [-1, 1]
func hashVector(data []byte) []float64 {
	vec := make([]float64, embeddingDimension)
	block := sha256.Sum256(data)

	for i := 0; i < embeddingDimension; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		vec[i] = (float64(block[i%len(block)])/255.0)*2 - 1
	}
	return vec
}

func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	for i := range v {
		v[i] /= norm
	}
	return v
}

// Ensure Provider implements provider.Backbone
var _ provider.Backbone = (*Provider)(nil)
