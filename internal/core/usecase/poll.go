package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

// PollAnswerUseCase is a bounded courtesy wait for one (document, identifier)
// answer, for internal flows that must block on an asynchronous result. It
// re-reads the current row between sleeps; it does not subscribe to updates
// and tolerates the answer appearing between polls.
type PollAnswerUseCase struct {
	queries     ports.QueryStore
	interval    time.Duration
	maxAttempts int
}

func NewPollAnswerUseCase(queries ports.QueryStore, interval time.Duration, maxAttempts int) *PollAnswerUseCase {
	if interval <= 0 {
		interval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &PollAnswerUseCase{queries: queries, interval: interval, maxAttempts: maxAttempts}
}

// Poll returns the current answer as soon as the latest row for the pair is
// COMPLETE. A nil result without error means the attempt budget elapsed;
// callers decide whether that is fatal.
func (uc *PollAnswerUseCase) Poll(ctx context.Context, documentID, identifier string) (*domain.PolledAnswer, error) {
	for attempt := 0; attempt < uc.maxAttempts; attempt++ {
		row, err := uc.queries.GetCurrent(ctx, documentID, identifier)
		if err != nil {
			return nil, fmt.Errorf("read current query: %w", err)
		}
		if row != nil && row.Status == domain.QueryComplete {
			return &domain.PolledAnswer{Result: row.Result, IsValidated: row.IsValidated}, nil
		}

		timer := time.NewTimer(uc.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, nil
}
