// Package evaluation runs the discount engines for HTTP callers and manages stored tiered
// configurations.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-discount/internal/common"
	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/function"
	"github.com/noah-isme/backend-discount/internal/obs"
	"github.com/noah-isme/backend-discount/internal/store"
)

// Engine labels used in logs, spans and metrics.
const (
	EngineFixed  = "fixed"
	EngineTiered = "tiered"
	EngineStored = "stored"
)

// Outcome labels.
const (
	OutcomeApplied = "applied"
	OutcomeNone    = "none"
	OutcomeAborted = "aborted"
)

var (
	// ErrNotConfigured is returned when the service lacks the engine or store a call needs.
	ErrNotConfigured = errors.New("evaluation: not configured")
)

// Run is the outcome of one evaluation.
type Run struct {
	ID         string
	Engine     string
	Result     function.Result
	Evaluation discount.Evaluation
}

// Service wires the pure engines to storage and observability.
type Service struct {
	Fixed  *discount.FixedEngine
	Store  store.Store
	Logger zerolog.Logger
	Now    func() time.Time
}

// RunFixed evaluates in with the fixed-rule engine.
func (s *Service) RunFixed(ctx context.Context, in function.Input) (Run, error) {
	if s == nil || s.Fixed == nil {
		return Run{}, ErrNotConfigured
	}
	return s.run(ctx, EngineFixed, "", func(context.Context) (function.Result, discount.Evaluation, error) {
		result, ev := function.RunFixed(s.Fixed, in)
		return result, ev, nil
	})
}

// RunTiered evaluates in with the tiered engine configured by the input's discount node.
func (s *Service) RunTiered(ctx context.Context, in function.Input) (Run, error) {
	return s.run(ctx, EngineTiered, "", func(context.Context) (function.Result, discount.Evaluation, error) {
		return function.RunTiered(in)
	})
}

// RunStored evaluates in with the tiered engine configured by the stored configuration of
// discountID. A missing configuration yields no discount.
func (s *Service) RunStored(ctx context.Context, discountID string, in function.Input) (Run, error) {
	if s == nil || s.Store == nil {
		return Run{}, ErrNotConfigured
	}
	return s.run(ctx, EngineStored, discountID, func(ctx context.Context) (function.Result, discount.Evaluation, error) {
		var raw *string
		value, err := s.Store.Get(ctx, discountID)
		switch {
		case err == nil:
			raw = &value
		case errors.Is(err, store.ErrNotFound):
		default:
			return function.Result{}, discount.Evaluation{}, fmt.Errorf("load configuration %s: %w", discountID, err)
		}
		ev, err := discount.RunTieredRaw(in.Cart(), raw)
		if err != nil {
			return function.Result{}, discount.Evaluation{}, err
		}
		return function.EncodeResult(ev.Verdict), ev, nil
	})
}

type evaluateFunc func(ctx context.Context) (function.Result, discount.Evaluation, error)

func (s *Service) run(ctx context.Context, engine, discountID string, fn evaluateFunc) (Run, error) {
	id := uuid.NewString()
	ctx, span := otel.Tracer("discount.evaluation").Start(ctx, "discount.evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("discount.engine", engine),
		attribute.String("discount.evaluation_id", id),
	)
	if discountID != "" {
		span.SetAttributes(attribute.String("discount.id", discountID))
	}

	start := s.now()
	result, ev, err := fn(ctx)
	took := s.now().Sub(start)

	logger := s.Logger.With().Str("evaluation_id", id).Str("engine", engine).Logger()
	if discountID != "" {
		logger = logger.With().Str("discount_id", discountID).Logger()
	}

	if err != nil {
		outcome := OutcomeAborted
		if !isEvaluationFailure(err) {
			outcome = "error"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("discount.outcome", outcome))
		obs.ObserveEvaluation(engine, outcome, took)
		logger.Warn().Err(err).Str("outcome", outcome).Msg("discount evaluation failed")
		return Run{ID: id, Engine: engine}, err
	}

	outcome := OutcomeNone
	if ev.Verdict.Applied() {
		outcome = OutcomeApplied
	}
	targets := 0
	for _, d := range ev.Verdict.Discounts {
		targets += len(d.Targets)
	}
	span.SetAttributes(
		attribute.String("discount.outcome", outcome),
		attribute.String("discount.stage", string(ev.Stage)),
		attribute.Int("discount.targets", targets),
	)
	obs.ObserveEvaluation(engine, outcome, took)
	logger.Debug().
		Str("outcome", outcome).
		Str("stage", string(ev.Stage)).
		Float64("subtotal", ev.Subtotal).
		Int("targets", targets).
		Dur("took", took).
		Msg("discount evaluated")

	return Run{ID: id, Engine: engine, Result: result, Evaluation: ev}, nil
}

// PutConfiguration validates raw and stores its canonical encoding under id.
func (s *Service) PutConfiguration(ctx context.Context, id, raw string) (discount.TieredConfig, error) {
	if s == nil || s.Store == nil {
		return discount.TieredConfig{}, ErrNotConfigured
	}
	cfg, err := discount.ParseTieredConfig(raw)
	if err != nil {
		return discount.TieredConfig{}, err
	}
	encoded, err := cfg.Encode()
	if err != nil {
		return discount.TieredConfig{}, err
	}
	if err := s.Store.Put(ctx, strings.TrimSpace(id), encoded); err != nil {
		return discount.TieredConfig{}, err
	}
	s.Logger.Info().
		Str("discount_id", id).
		Str("actor", actor(ctx)).
		Int("tiers", len(cfg.Mapping)).
		Msg("discount configuration stored")
	return cfg, nil
}

// GetConfiguration returns the stored configuration for id.
func (s *Service) GetConfiguration(ctx context.Context, id string) (discount.TieredConfig, error) {
	if s == nil || s.Store == nil {
		return discount.TieredConfig{}, ErrNotConfigured
	}
	raw, err := s.Store.Get(ctx, id)
	if err != nil {
		return discount.TieredConfig{}, err
	}
	return discount.ParseTieredConfig(raw)
}

// DeleteConfiguration removes the stored configuration for id.
func (s *Service) DeleteConfiguration(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return ErrNotConfigured
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info().Str("discount_id", id).Str("actor", actor(ctx)).Msg("discount configuration deleted")
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// actor names the admin subject behind a configuration change; seeding and other
// unauthenticated callers show as "system".
func actor(ctx context.Context) string {
	if subject, ok := common.UserID(ctx); ok {
		return subject
	}
	return "system"
}

func isEvaluationFailure(err error) bool {
	return errors.Is(err, discount.ErrInvalidConfiguration) || errors.Is(err, discount.ErrInvalidDiscountSchedule)
}
