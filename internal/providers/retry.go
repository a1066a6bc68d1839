package providers

import (
	"context"
	"log/slog"
	"time"

	gax "github.com/googleapis/gax-go/v2"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
)

// RetryPolicy retries transient upstream failures with jittered exponential backoff.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) backoff() *gax.Backoff {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &gax.Backoff{
		Initial:    p.BaseDelay,
		Max:        maxDelay,
		Multiplier: 2,
	}
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := max(1, p.Attempts)
	bo := p.backoff()

	var err error
	for i := 1; i <= attempts; i++ {
		err = fn(ctx)
		if err == nil || !apperr.IsTransient(err) || i == attempts {
			return err
		}

		delay := bo.Pause()
		slog.Warn("Transient provider failure, retrying", "op", op, "attempt", i, "delay", delay, "err", err)
		if serr := gax.Sleep(ctx, delay); serr != nil {
			return apperr.Upstream(serr, false, "%s cancelled", op)
		}
	}
	return err
}

type retryingExtractor struct {
	TextExtractor
	policy RetryPolicy
}

// RetryText wraps a TextExtractor with the policy.
func RetryText(e TextExtractor, policy RetryPolicy) TextExtractor {
	return &retryingExtractor{TextExtractor: e, policy: policy}
}

func (r *retryingExtractor) ExtractText(ctx context.Context, img Image) (string, error) {
	var text string
	err := r.policy.Do(ctx, "extract_text", func(ctx context.Context) error {
		var err error
		text, err = r.TextExtractor.ExtractText(ctx, img)
		return err
	})
	return text, err
}

type retryingDetector struct {
	DiagramDetector
	policy RetryPolicy
}

// RetryDiagrams wraps a DiagramDetector with the policy.
func RetryDiagrams(d DiagramDetector, policy RetryPolicy) DiagramDetector {
	return &retryingDetector{DiagramDetector: d, policy: policy}
}

func (r *retryingDetector) DetectDiagrams(ctx context.Context, img Image) ([]models.Diagram, error) {
	var diagrams []models.Diagram
	err := r.policy.Do(ctx, "detect_diagrams", func(ctx context.Context) error {
		var err error
		diagrams, err = r.DiagramDetector.DetectDiagrams(ctx, img)
		return err
	})
	return diagrams, err
}
