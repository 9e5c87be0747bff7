// Package service orchestrates named threshold classifiers: fitting them
// from labelled image pairs, persisting the fits and answering verify,
// histogram, distance and loss requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metrics"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider"
	"github.com/saturnino-fabrica-de-software/siamese/internal/report"
	"github.com/saturnino-fabrica-de-software/siamese/internal/siamese"
	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

type ClassifierRepositoryInterface interface {
	// SaveFit stores the classifier row and its observations atomically
	SaveFit(ctx context.Context, c *domain.Classifier, obs []domain.Observation) error
	GetByName(ctx context.Context, name string) (*domain.Classifier, error)
	List(ctx context.Context) ([]domain.Classifier, error)
	Delete(ctx context.Context, name string) error
}

type ObservationRepositoryInterface interface {
	ListByClassifier(ctx context.Context, classifierID uuid.UUID) ([]domain.Observation, error)
}

type DecisionRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Decision) error
	ListRecent(ctx context.Context, classifier string, limit int) ([]domain.Decision, error)
}

// Publisher receives classifier events, e.g. a *ws.Hub
type Publisher interface {
	Publish(classifier string, eventType ws.EventType, data any)
}

// Publishers fans every event out to each of its members
type Publishers []Publisher

func (ps Publishers) Publish(classifier string, eventType ws.EventType, data any) {
	for _, p := range ps {
		p.Publish(classifier, eventType, data)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, ws.EventType, any) {}

// Options tune a SiameseService; zero values fall back to defaults
type Options struct {
	Metric        string
	Concurrency   int
	HistogramBins int
	LossMargin    float64
	Events        Publisher
}

const (
	defaultHistogramBins = 20
	defaultConcurrency   = 4
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)

type SiameseService struct {
	backbone        provider.Backbone
	classifierRepo  ClassifierRepositoryInterface
	observationRepo ObservationRepositoryInterface
	decisionRepo    DecisionRepositoryInterface
	events          Publisher
	logger          *slog.Logger

	metricName  string
	concurrency int
	bins        int
	margin      float64

	mu     sync.RWMutex
	models map[string]*siamese.ThresholdSiamese[[]byte]
}

func NewSiameseService(
	backbone provider.Backbone,
	classifierRepo ClassifierRepositoryInterface,
	observationRepo ObservationRepositoryInterface,
	decisionRepo DecisionRepositoryInterface,
	opts Options,
	logger *slog.Logger,
) (*SiameseService, error) {
	if opts.Metric == "" {
		opts.Metric = metric.Default
	}
	if _, err := metric.Lookup(opts.Metric); err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.HistogramBins < 1 {
		opts.HistogramBins = defaultHistogramBins
	}
	if opts.LossMargin <= 0 {
		opts.LossMargin = siamese.DefaultMargin
	}
	if opts.Events == nil {
		opts.Events = noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SiameseService{
		backbone:        backbone,
		classifierRepo:  classifierRepo,
		observationRepo: observationRepo,
		decisionRepo:    decisionRepo,
		events:          opts.Events,
		logger:          logger,
		metricName:      opts.Metric,
		concurrency:     opts.Concurrency,
		bins:            opts.HistogramBins,
		margin:          opts.LossMargin,
		models:          make(map[string]*siamese.ThresholdSiamese[[]byte]),
	}, nil
}

// Fit scores the labelled pairs, fits a threshold and stores it under name,
// replacing any previous fit. A failed fit leaves the previous one in place.
func (s *SiameseService) Fit(ctx context.Context, name string, pairs []siamese.LabeledPair[[]byte]) (*domain.Classifier, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	same, diff := 0, 0
	for _, p := range pairs {
		if p.IsSame {
			same++
		} else {
			diff++
		}
	}
	if same == 0 || diff == 0 {
		metrics.FitsTotal.WithLabelValues(name, "insufficient_data").Inc()
		return nil, domain.ErrInsufficientData.WithError(
			fmt.Errorf("%d matching and %d non-matching pairs", same, diff))
	}

	model, err := s.newModel(s.metricName)
	if err != nil {
		return nil, err
	}

	obs, err := model.Observe(ctx, pairs)
	if err != nil {
		metrics.FitsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}
	for _, o := range obs {
		metrics.PairDistance.Observe(o.Distance)
	}

	threshold, err := model.Classifier().Fit(obs)
	if err != nil {
		metrics.FitsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("classifier %s: fit threshold: %w", name, err)
	}

	c := &domain.Classifier{
		Name:         name,
		Metric:       s.metricName,
		Model:        s.backbone.Model(),
		Threshold:    threshold,
		Accuracy:     model.Classifier().Accuracy(),
		Observations: len(obs),
		SamePairs:    same,
		DiffPairs:    diff,
	}

	if err := s.classifierRepo.SaveFit(ctx, c, obs); err != nil {
		metrics.FitsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}

	s.mu.Lock()
	s.models[name] = model
	s.mu.Unlock()

	metrics.FitsTotal.WithLabelValues(name, "ok").Inc()
	metrics.FitAccuracy.WithLabelValues(name).Set(c.Accuracy)
	metrics.FitThreshold.WithLabelValues(name).Set(c.Threshold)

	s.logger.Info("classifier fitted",
		slog.String("classifier", name),
		slog.Float64("threshold", c.Threshold),
		slog.Float64("accuracy", c.Accuracy),
		slog.Int("same_pairs", same),
		slog.Int("different_pairs", diff),
	)
	s.events.Publish(name, ws.EventClassifierFitted, c)

	return c, nil
}

// Verify decides whether two images show the same identity according to
// the classifier stored under name
func (s *SiameseService) Verify(ctx context.Context, name string, first, second []byte) (*domain.Decision, error) {
	start := time.Now()

	model, err := s.model(ctx, name)
	if err != nil {
		return nil, err
	}

	distance, err := model.Scorer().Score(ctx, first, second)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: score pair: %w", name, err)
	}
	metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	metrics.PairDistance.Observe(distance)

	same, err := model.Classifier().Decide(distance)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}
	threshold, err := model.Classifier().Threshold()
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}

	result := "different"
	if same {
		result = "same"
	}
	metrics.DecisionsTotal.WithLabelValues(name, result).Inc()

	decision := &domain.Decision{
		Classifier: name,
		Distance:   distance,
		Threshold:  threshold,
		Same:       same,
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	// the decision stands even if the audit write fails
	if err := s.decisionRepo.Create(ctx, decision); err != nil {
		s.logger.Warn("failed to record decision",
			slog.String("classifier", name),
			slog.Any("error", err),
		)
	}
	s.events.Publish(name, ws.EventDecision, decision)

	return decision, nil
}

// Histogram bins the distances of the given pairs, scored with the metric of
// the classifier stored under name. Without pairs it bins the observations
// the classifier was fitted on.
func (s *SiameseService) Histogram(ctx context.Context, name string, pairs []siamese.LabeledPair[[]byte]) (*report.Histogram, error) {
	if len(pairs) == 0 {
		c, err := s.classifierRepo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		obs, err := s.observationRepo.ListByClassifier(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("classifier %s: %w", name, err)
		}
		return report.NewHistogram(obs, s.bins)
	}

	model, err := s.model(ctx, name)
	if errors.Is(err, domain.ErrClassifierNotFound) {
		model, err = s.newModel(s.metricName)
	}
	if err != nil {
		return nil, err
	}

	obs, err := model.Observe(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}
	return report.NewHistogram(obs, s.bins)
}

func (s *SiameseService) Get(ctx context.Context, name string) (*domain.Classifier, error) {
	return s.classifierRepo.GetByName(ctx, name)
}

func (s *SiameseService) List(ctx context.Context) ([]domain.Classifier, error) {
	return s.classifierRepo.List(ctx)
}

// Decisions returns the most recent decisions of a classifier
func (s *SiameseService) Decisions(ctx context.Context, name string, limit int) ([]domain.Decision, error) {
	if _, err := s.classifierRepo.GetByName(ctx, name); err != nil {
		return nil, err
	}
	return s.decisionRepo.ListRecent(ctx, name, limit)
}

func (s *SiameseService) Delete(ctx context.Context, name string) error {
	if err := s.classifierRepo.Delete(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.models, name)
	s.mu.Unlock()

	metrics.FitAccuracy.DeleteLabelValues(name)
	metrics.FitThreshold.DeleteLabelValues(name)

	s.logger.Info("classifier deleted", slog.String("classifier", name))
	s.events.Publish(name, ws.EventClassifierDeleted, nil)
	return nil
}

// Distance scores aligned embedding pairs with the named metric, or the
// service default when metricName is empty
func (s *SiameseService) Distance(metricName string, as, bs [][]float64) ([]float64, error) {
	if metricName == "" {
		metricName = s.metricName
	}
	fn, err := metric.Lookup(metricName)
	if err != nil {
		return nil, err
	}
	return metric.Batch(fn, as, bs)
}

// LossResult holds the contrastive loss of a batch and its per-pair gradients
type LossResult struct {
	Loss      []float64 `json:"loss"`
	Gradients []float64 `json:"gradients"`
	Margin    float64   `json:"margin"`
	Reduction string    `json:"reduction"`
}

// Loss evaluates the contrastive loss over precomputed distances. A zero
// margin uses the configured one.
func (s *SiameseService) Loss(distances []float64, same []bool, reduction string, margin float64) (*LossResult, error) {
	r, err := siamese.ParseReduction(reduction)
	if err != nil {
		return nil, err
	}
	if margin == 0 {
		margin = s.margin
	}
	if margin < 0 {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("margin must be positive, got %v", margin))
	}

	l := siamese.ContrastiveLoss{Margin: margin, Reduction: r}
	loss, err := l.Batch(distances, same)
	if err != nil {
		return nil, err
	}

	grads := make([]float64, len(distances))
	for i, d := range distances {
		grads[i] = l.Grad(d, same[i])
	}

	return &LossResult{Loss: loss, Gradients: grads, Margin: margin, Reduction: string(r)}, nil
}

// model returns the fitted classifier for name, restoring it from the
// repository on first use
func (s *SiameseService) model(ctx context.Context, name string) (*siamese.ThresholdSiamese[[]byte], error) {
	s.mu.RLock()
	m, ok := s.models[name]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	c, err := s.classifierRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if model := s.backbone.Model(); c.Model != model {
		return nil, domain.ErrBackboneMismatch.WithError(
			fmt.Errorf("classifier %s was fitted with %q, backbone is %q", name, c.Model, model))
	}

	m, err = s.newModel(c.Metric)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}
	if err := m.Classifier().Restore(c.Threshold, c.Accuracy); err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent Fit may have installed a newer model meanwhile
	if existing, ok := s.models[name]; ok {
		return existing, nil
	}
	s.models[name] = m

	s.logger.Debug("classifier restored", slog.String("classifier", name), slog.Float64("threshold", c.Threshold))
	return m, nil
}

func (s *SiameseService) newModel(metricName string) (*siamese.ThresholdSiamese[[]byte], error) {
	fn, err := metric.Lookup(metricName)
	if err != nil {
		return nil, err
	}
	scorer := siamese.NewScorer[[]byte](s.backbone,
		siamese.WithMetric(fn),
		siamese.WithConcurrency(s.concurrency),
	)
	return siamese.NewThresholdSiamese(scorer, nil), nil
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("invalid classifier name %q", name))
	}
	return nil
}
