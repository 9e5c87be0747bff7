package deepface_test

import (
	"context"
	"fmt"
	"log"

	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/siamese/internal/siamese"
)

func ExampleProvider_Embed() {
	// Create provider with default config
	config := deepface.DefaultConfig()
	provider := deepface.NewProvider(config)

	// Image bytes (in practice, load from file or HTTP request)
	var imageBytes []byte

	embedding, err := provider.Embed(context.Background(), imageBytes)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("model=%s embedding_size=%d\n", provider.Model(), len(embedding))
}

func ExampleProvider_scorer() {
	provider := deepface.NewProvider(deepface.DefaultConfig())

	// The provider is the backbone of a siamese scorer
	scorer := siamese.NewScorer[[]byte](provider, siamese.WithMetric(metric.NormalizedSquaredEuclidean))

	var photo1, photo2 []byte
	distance, err := scorer.Score(context.Background(), photo1, photo2)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("distance=%.4f\n", distance)
}
