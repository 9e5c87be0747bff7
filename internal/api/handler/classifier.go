package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/report"
	"github.com/saturnino-fabrica-de-software/siamese/internal/siamese"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
	maxPairs     = 10000
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ClassifierService interface for the service
type ClassifierService interface {
	Fit(ctx context.Context, name string, pairs []siamese.LabeledPair[[]byte]) (*domain.Classifier, error)
	Verify(ctx context.Context, name string, first, second []byte) (*domain.Decision, error)
	Histogram(ctx context.Context, name string, pairs []siamese.LabeledPair[[]byte]) (*report.Histogram, error)
	Get(ctx context.Context, name string) (*domain.Classifier, error)
	List(ctx context.Context) ([]domain.Classifier, error)
	Decisions(ctx context.Context, name string, limit int) ([]domain.Decision, error)
	Delete(ctx context.Context, name string) error
}

// ClassifierHandler handles classifier-related requests
type ClassifierHandler struct {
	service ClassifierService
	logger  *slog.Logger
}

func NewClassifierHandler(service ClassifierService, logger *slog.Logger) *ClassifierHandler {
	return &ClassifierHandler{
		service: service,
		logger:  logger,
	}
}

// PairRequest is one labelled pair of base64 encoded images
type PairRequest struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Same   bool   `json:"same"`
}

type PairsRequest struct {
	Pairs []PairRequest `json:"pairs"`
}

// DecisionResponse response for verify endpoint
type DecisionResponse struct {
	DecisionID string  `json:"decision_id"`
	Same       bool    `json:"same"`
	Distance   float64 `json:"distance"`
	Threshold  float64 `json:"threshold"`
	LatencyMs  int64   `json:"latency_ms"`
}

type ClassifiersResponse struct {
	Classifiers []domain.Classifier `json:"classifiers"`
}

type DecisionsResponse struct {
	Decisions []domain.Decision `json:"decisions"`
}

// Fit POST /v1/classifiers/:name/fit - fit a threshold from labelled pairs
func (h *ClassifierHandler) Fit(c *fiber.Ctx) error {
	pairs, err := parsePairs(c, true)
	if err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}

	classifier, err := h.service.Fit(c.Context(), c.Params("name"), pairs)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(classifier)
}

// Verify POST /v1/classifiers/:name/verify - decide same/different for two images
func (h *ClassifierHandler) Verify(c *fiber.Ctx) error {
	first, err := extractAndValidateImage(c, "image1")
	if err != nil {
		return fmt.Errorf("verify pair: %w", err)
	}
	second, err := extractAndValidateImage(c, "image2")
	if err != nil {
		return fmt.Errorf("verify pair: %w", err)
	}

	decision, err := h.service.Verify(c.Context(), c.Params("name"), first, second)
	if err != nil {
		return err
	}

	return c.JSON(DecisionResponse{
		DecisionID: decision.ID.String(),
		Same:       decision.Same,
		Distance:   decision.Distance,
		Threshold:  decision.Threshold,
		LatencyMs:  decision.LatencyMs,
	})
}

// Histogram POST /v1/classifiers/:name/histogram - intra vs inter class distances.
// An empty body reports the observations of the last fit.
func (h *ClassifierHandler) Histogram(c *fiber.Ctx) error {
	pairs, err := parsePairs(c, false)
	if err != nil {
		return fmt.Errorf("distance histogram: %w", err)
	}

	hist, err := h.service.Histogram(c.Context(), c.Params("name"), pairs)
	if err != nil {
		return err
	}

	return c.JSON(hist)
}

// Get GET /v1/classifiers/:name
func (h *ClassifierHandler) Get(c *fiber.Ctx) error {
	classifier, err := h.service.Get(c.Context(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(classifier)
}

// List GET /v1/classifiers
func (h *ClassifierHandler) List(c *fiber.Ctx) error {
	classifiers, err := h.service.List(c.Context())
	if err != nil {
		return err
	}
	if classifiers == nil {
		classifiers = []domain.Classifier{}
	}
	return c.JSON(ClassifiersResponse{Classifiers: classifiers})
}

// Decisions GET /v1/classifiers/:name/decisions?limit=N
func (h *ClassifierHandler) Decisions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 1 and 500"))
	}

	decisions, err := h.service.Decisions(c.Context(), c.Params("name"), limit)
	if err != nil {
		return err
	}
	if decisions == nil {
		decisions = []domain.Decision{}
	}
	return c.JSON(DecisionsResponse{Decisions: decisions})
}

// Delete DELETE /v1/classifiers/:name
func (h *ClassifierHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parsePairs decodes the JSON body. When required is false an empty body
// yields no pairs.
func parsePairs(c *fiber.Ctx, required bool) ([]siamese.LabeledPair[[]byte], error) {
	if len(c.Body()) == 0 {
		if required {
			return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("pairs are required"))
		}
		return nil, nil
	}

	var req PairsRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}
	if len(req.Pairs) > maxPairs {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("at most %d pairs per request", maxPairs))
	}

	pairs := make([]siamese.LabeledPair[[]byte], len(req.Pairs))
	for i, p := range req.Pairs {
		first, err := decodeImage(p.First)
		if err != nil {
			return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("pair %d first: %w", i, err))
		}
		second, err := decodeImage(p.Second)
		if err != nil {
			return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("pair %d second: %w", i, err))
		}
		pairs[i] = siamese.LabeledPair[[]byte]{First: first, Second: second, IsSame: p.Same}
	}
	return pairs, nil
}

func decodeImage(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if len(b) > maxImageSize {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageSize)
	}
	return b, nil
}

func extractAndValidateImage(c *fiber.Ctx, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("%s: %w", field, err))
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: size %d", field, file.Size))
	}

	contentType := file.Header.Get("Content-Type")
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: content type %q", field, contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}
