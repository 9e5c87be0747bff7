package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ClassifierResponse represents a fitted classifier
type ClassifierResponse struct {
	ID             string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name           string  `json:"name" example:"faces"`
	Metric         string  `json:"metric" example:"normalized_squared_euclidean"`
	Model          string  `json:"model" example:"Facenet512"`
	Threshold      float64 `json:"threshold" example:"0.42"`
	Accuracy       float64 `json:"accuracy" example:"0.97"`
	Observations   int     `json:"observations" example:"400"`
	SamePairs      int     `json:"same_pairs" example:"200"`
	DifferentPairs int     `json:"different_pairs" example:"200"`
	CreatedAt      string  `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt      string  `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

// ClassifiersResponse represents the classifier listing
type ClassifiersResponse struct {
	Classifiers []ClassifierResponse `json:"classifiers"`
}

// PairRequest is one labelled pair of base64 encoded images
type PairRequest struct {
	First  string `json:"first" example:"iVBORw0KGgo..."`
	Second string `json:"second" example:"iVBORw0KGgo..."`
	Same   bool   `json:"same" example:"true"`
}

// PairsRequest is the body of fit and histogram
type PairsRequest struct {
	Pairs []PairRequest `json:"pairs"`
}

// DecisionResponse represents the response for verification
type DecisionResponse struct {
	DecisionID string  `json:"decision_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Same       bool    `json:"same" example:"true"`
	Distance   float64 `json:"distance" example:"0.31"`
	Threshold  float64 `json:"threshold" example:"0.42"`
	LatencyMs  int64   `json:"latency_ms" example:"45"`
}

// DecisionItem is one entry of the decision log
type DecisionItem struct {
	ID         string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Classifier string  `json:"classifier" example:"faces"`
	Distance   float64 `json:"distance" example:"0.31"`
	Threshold  float64 `json:"threshold" example:"0.42"`
	Same       bool    `json:"same" example:"true"`
	LatencyMs  int64   `json:"latency_ms" example:"45"`
	CreatedAt  string  `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// DecisionsResponse represents the decision log
type DecisionsResponse struct {
	Decisions []DecisionItem `json:"decisions"`
}

// HistogramBin is one bucket of the distance histogram
type HistogramBin struct {
	Lower float64 `json:"lower" example:"0.2"`
	Upper float64 `json:"upper" example:"0.3"`
	Intra float64 `json:"intra" example:"0.25"`
	Inter float64 `json:"inter" example:"0.01"`
}

// HistogramResponse represents intra vs inter class distance distributions
type HistogramResponse struct {
	Bins       []HistogramBin `json:"bins"`
	IntraCount int            `json:"intra_count" example:"200"`
	InterCount int            `json:"inter_count" example:"200"`
	Min        float64        `json:"min" example:"0.05"`
	Max        float64        `json:"max" example:"1.9"`
}

// DistanceRequest holds aligned embedding batches
type DistanceRequest struct {
	Metric string      `json:"metric" example:"cosine"`
	First  [][]float64 `json:"first"`
	Second [][]float64 `json:"second"`
}

// DistanceResponse holds one distance per pair
type DistanceResponse struct {
	Distances []float64 `json:"distances"`
}

// LossRequest holds a batch of distances and labels
type LossRequest struct {
	Distances []float64 `json:"distances"`
	Same      []bool    `json:"same"`
	Reduction string    `json:"reduction" example:"mean"`
	Margin    float64   `json:"margin" example:"1.0"`
}

// LossResponse holds the loss and its gradient per pair
type LossResponse struct {
	Loss      []float64 `json:"loss"`
	Gradients []float64 `json:"gradients"`
	Margin    float64   `json:"margin" example:"1.0"`
	Reduction string    `json:"reduction" example:"mean"`
}

// EventResponse is one message of the websocket event stream
type EventResponse struct {
	Classifier string `json:"classifier" example:"faces"`
	Type       string `json:"type" example:"decision.made"`
	Data       any    `json:"data"`
	Timestamp  string `json:"timestamp" example:"2024-01-01T00:00:00Z"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
	Details string `json:"details,omitempty" example:"pairs are required"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errValidation = response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity")
	errNotFound   = response.New(ErrorResponse{Code: "CLASSIFIER_NOT_FOUND", Message: "Classifier not found"}, "404", "Not Found")
	errInternal   = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errBackbone   = response.New(ErrorResponse{Code: "BACKBONE_MISMATCH", Message: "Classifier was fitted with a different embedding model; refit it"}, "409", "Conflict")
)

func nameParam() *parameter.Parameter {
	return parameter.StrParam("name", parameter.Path, parameter.WithDescription("Classifier name ([a-z0-9_-], up to 128 chars)"))
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Siamese Verification API",
		Version:     "v1.0.0",
		Description: "Learns a distance threshold from labelled image pairs and decides whether new pairs show the same identity",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /v1/classifiers
		endpoint.New(
			endpoint.GET,
			"/classifiers",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("List classifiers"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassifiersResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// GET /v1/classifiers/:name
		endpoint.New(
			endpoint.GET,
			"/classifiers/{name}",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Get a classifier"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassifierResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errNotFound, errInternal}),
		),

		// DELETE /v1/classifiers/:name
		endpoint.New(
			endpoint.DELETE,
			"/classifiers/{name}",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Delete a classifier"),
			endpoint.WithDescription("Removes the classifier together with its observations and decision log"),
			endpoint.WithParams(nameParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{errNotFound, errInternal}),
		),

		// POST /v1/classifiers/:name/fit
		endpoint.New(
			endpoint.POST,
			"/classifiers/{name}/fit",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Fit a threshold"),
			endpoint.WithDescription("Embeds every pair, records the distances and picks the threshold with the highest accuracy. Refitting replaces the previous observations."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam()),
			endpoint.WithBody(PairsRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassifierResponse{}, "201", "Classifier fitted"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				response.New(ErrorResponse{Code: "INSUFFICIENT_DATA", Message: "Not enough observations to fit"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
		),

		// POST /v1/classifiers/:name/verify
		endpoint.New(
			endpoint.POST,
			"/classifiers/{name}/verify",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Verify a pair of images"),
			endpoint.WithDescription("Multipart form with image1 and image2 (jpeg, png or webp). The pair is the same identity when its distance is below the threshold."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DecisionResponse{}, "200", "Decision"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				errNotFound,
				errBackbone,
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
		),

		// POST /v1/classifiers/:name/histogram
		endpoint.New(
			endpoint.POST,
			"/classifiers/{name}/histogram",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Distance histogram"),
			endpoint.WithDescription("Intra-class vs inter-class distance distribution. An empty body reports the observations of the last fit."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(nameParam()),
			endpoint.WithBody(PairsRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HistogramResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errNotFound, errInternal}),
		),

		// GET /v1/classifiers/:name/decisions
		endpoint.New(
			endpoint.GET,
			"/classifiers/{name}/decisions",
			endpoint.WithTags("Classifiers"),
			endpoint.WithSummary("Recent decisions"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				nameParam(),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of decisions (default: 50, max: 500)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DecisionsResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errNotFound, errInternal}),
		),

		// POST /v1/distance
		endpoint.New(
			endpoint.POST,
			"/distance",
			endpoint.WithTags("Compute"),
			endpoint.WithSummary("Pairwise distances"),
			endpoint.WithDescription("Distance between first[i] and second[i] for each i. Metric defaults to normalized_squared_euclidean."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(DistanceRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DistanceResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				errValidation,
				response.New(ErrorResponse{Code: "DIMENSION_MISMATCH", Message: "Embedding dimensions differ"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "METRIC_NOT_FOUND", Message: "Unknown distance metric"}, "422", "Unprocessable Entity"),
			}),
		),

		// POST /v1/loss
		endpoint.New(
			endpoint.POST,
			"/loss",
			endpoint.WithTags("Compute"),
			endpoint.WithSummary("Contrastive loss"),
			endpoint.WithDescription("Contrastive loss and its gradient with respect to each distance. Reduction is none, mean or sum."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(LossRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LossResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errValidation}),
		),

		// GET /v1/classifiers/:name/events
		endpoint.New(
			endpoint.GET,
			"/classifiers/{name}/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Stream classifier events"),
			endpoint.WithDescription("WebSocket stream of classifier.fitted, classifier.deleted and decision.made events for one classifier. GET /v1/events streams every classifier."),
			endpoint.WithParams(nameParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EventResponse{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
