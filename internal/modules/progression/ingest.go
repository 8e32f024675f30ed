package progression

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/apierr"
)

const maxEventsPerCall = 200

// EventInput is one ping as reported by the browser companion.
type EventInput struct {
	ContentKey   string     `json:"content_key"`
	ActivityType string     `json:"activity_type"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
	Source       string     `json:"source,omitempty"`
}

// Ingest stores raw pings for the sessionizer. It acknowledges only; no
// progression state changes until the next batch.
func (u *Usecases) Ingest(ctx context.Context, userID uuid.UUID, inputs []EventInput) (int, error) {
	if userID == uuid.Nil {
		return 0, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if len(inputs) == 0 {
		return 0, apierr.BadRequest("empty_events", "no events")
	}
	if len(inputs) > maxEventsPerCall {
		return 0, apierr.BadRequest("too_many_events", "at most %d events per call", maxEventsPerCall)
	}

	now := u.deps.Now().UTC()
	skew := u.deps.Rules.Sessionizer.MaxFutureSkew
	rows := make([]*types.RawActivityEvent, 0, len(inputs))
	for i, in := range inputs {
		key := strings.TrimSpace(in.ContentKey)
		if key == "" {
			return 0, apierr.BadRequest("invalid_event", "events[%d]: content_key required", i)
		}
		typ := strings.ToLower(strings.TrimSpace(in.ActivityType))
		if !model.IsValidActivityType(typ) {
			return 0, apierr.BadRequest("invalid_event", "events[%d]: unknown activity_type %q", i, in.ActivityType)
		}
		at := now
		if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
			at = in.OccurredAt.UTC()
			if at.After(now.Add(skew)) {
				at = now
			}
		}
		rows = append(rows, &types.RawActivityEvent{
			UserID:       userID,
			ContentKey:   key,
			ActivityType: typ,
			OccurredAt:   at,
			Source:       strings.TrimSpace(in.Source),
		})
	}

	user, err := u.deps.Repos.Users.GetByID(ctx, nil, userID)
	if err != nil {
		return 0, toAPIError(err, "event_ingest_failed")
	}
	if user == nil {
		return 0, toAPIError(model.ErrMissingUser, "event_ingest_failed")
	}
	created, err := u.deps.Repos.RawEvents.Create(ctx, nil, rows)
	if err != nil {
		return 0, toAPIError(err, "event_ingest_failed")
	}
	u.deps.Metrics.AddEventsIngested(len(created))
	return len(created), nil
}
