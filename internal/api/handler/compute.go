package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/service"
)

// ComputeService scores precomputed embeddings and distances
type ComputeService interface {
	Distance(metricName string, as, bs [][]float64) ([]float64, error)
	Loss(distances []float64, same []bool, reduction string, margin float64) (*service.LossResult, error)
}

// ComputeHandler exposes the stateless distance and loss computations
type ComputeHandler struct {
	service ComputeService
}

func NewComputeHandler(service ComputeService) *ComputeHandler {
	return &ComputeHandler{service: service}
}

type DistanceRequest struct {
	Metric string      `json:"metric"`
	First  [][]float64 `json:"first"`
	Second [][]float64 `json:"second"`
}

type DistanceResponse struct {
	Distances []float64 `json:"distances"`
}

type LossRequest struct {
	Distances []float64 `json:"distances"`
	Same      []bool    `json:"same"`
	Reduction string    `json:"reduction"`
	Margin    float64   `json:"margin"`
}

// Distance POST /v1/distance - distances between aligned embedding pairs
func (h *ComputeHandler) Distance(c *fiber.Ctx) error {
	var req DistanceRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if len(req.First) == 0 {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("first and second are required"))
	}

	distances, err := h.service.Distance(req.Metric, req.First, req.Second)
	if err != nil {
		return err
	}
	return c.JSON(DistanceResponse{Distances: distances})
}

// Loss POST /v1/loss - contrastive loss and gradients of a batch
func (h *ComputeHandler) Loss(c *fiber.Ctx) error {
	var req LossRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	result, err := h.service.Loss(req.Distances, req.Same, req.Reduction, req.Margin)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
