package provider

import "context"

// Backbone embeds a face image into a feature space.
// It is the embedding function a siamese scorer borrows; implementations
// must be stateless with respect to Embed calls.
type Backbone interface {
	// Embed returns the flat embedding vector of the face in image
	Embed(ctx context.Context, image []byte) ([]float64, error)

	// Model names the network producing the embeddings, e.g. "Facenet512"
	Model() string
}
