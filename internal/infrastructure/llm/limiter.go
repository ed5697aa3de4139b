package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// Backend is a model provider that can both judge and draft.
type Backend interface {
	ports.Judge
	ports.Drafter
}

// RateLimited wraps a backend so that judge and draft calls share one
// request budget.
type RateLimited struct {
	next    Backend
	limiter *rate.Limiter
}

var _ Backend = (*RateLimited)(nil)

// NewRateLimited allows perMinute calls per minute with a burst of one.
// perMinute <= 0 disables limiting.
func NewRateLimited(next Backend, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Evaluate waits for a token, then delegates.
func (r *RateLimited) Evaluate(ctx context.Context, text string, jc domain.JudgeContext) (domain.Judgement, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Judgement{}, &domain.JudgementError{Err: err}
	}
	return r.next.Evaluate(ctx, text, jc)
}

// Draft waits for a token, then delegates.
func (r *RateLimited) Draft(ctx context.Context, records []domain.CuratedRecord, blogContext string) (domain.Draft, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Draft{}, &domain.DraftError{Kind: domain.FailureTransient, Err: err}
	}
	return r.next.Draft(ctx, records, blogContext)
}

// wait fails when the next token would arrive after the call deadline; the
// caller reports that as transient so the unit is retried on a later run.
func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}
