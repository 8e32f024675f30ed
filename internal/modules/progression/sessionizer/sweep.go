package sessionizer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

const (
	sweepCompleted = "completed"
	sweepDiscarded = "discarded"
	sweepDeferred  = "deferred"
	sweepSkipped   = "skipped"
)

// SweepResult summarizes one SweepStale run.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Discarded int `json:"discarded"`
	Deferred  int `json:"deferred"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// SweepStale finalizes in-progress activities whose pings stopped without a
// closing event. Sessions shorter than the minimum meaningful duration are
// deleted uncounted.
func (s *Service) SweepStale(ctx context.Context) (SweepResult, error) {
	now := s.deps.Now().UTC()
	cutoff := now.Add(-s.deps.Rules.Sessionizer.GapThreshold)

	stale, err := s.deps.Repos.Activities.ListStaleInProgress(ctx, nil, cutoff, s.deps.Rules.Sessionizer.StaleSweepLimit)
	if err != nil {
		return SweepResult{}, err
	}
	var (
		mu  sync.Mutex
		res = SweepResult{Scanned: len(stale)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Concurrency)
	for _, act := range stale {
		id := act.ID
		g.Go(func() error {
			outcome, err := s.sweepOne(gctx, id, cutoff)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Failed++
				s.log.Warn("stale sweep failed", "activity_id", id, "error", err)
				return nil
			}
			switch outcome {
			case sweepCompleted:
				res.Completed++
			case sweepDiscarded:
				res.Discarded++
			case sweepDeferred:
				res.Deferred++
			default:
				res.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if res.Scanned > 0 {
		s.log.Info("stale sweep done",
			"scanned", res.Scanned,
			"completed", res.Completed,
			"discarded", res.Discarded,
			"deferred", res.Deferred,
			"failed", res.Failed,
		)
	}
	return res, nil
}

func (s *Service) sweepOne(ctx context.Context, id uuid.UUID, cutoff time.Time) (string, error) {
	var (
		outcome    string
		completion *Completion
	)
	err := s.deps.Writer.Write(ctx, "sessionizer.sweep", func(dbc dbctx.Context) error {
		var err error
		completion, outcome, err = s.sweepInTx(dbc, id, cutoff)
		return err
	})
	if err != nil {
		return "", err
	}
	if completion != nil {
		s.afterCommit(ctx, groupResult{
			outcome:       observability.OutcomeFinalized,
			completions:   []Completion{*completion},
			notifications: completion.Notifications,
		})
	}
	return outcome, nil
}

func (s *Service) sweepInTx(dbc dbctx.Context, id uuid.UUID, cutoff time.Time) (*Completion, string, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	act, err := s.deps.Repos.Activities.GetByID(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	if act == nil || act.State != progression.ActivityStateInProgress || !act.LastEventAt.Before(cutoff) {
		return nil, sweepSkipped, nil
	}
	// Pending pings for the key belong to the batch, which may still extend the session.
	pending, err := s.deps.Repos.RawEvents.ListByGroup(ctx, tx, repos.EventGroupKey{UserID: act.UserID, ContentKey: act.ContentKey}, 1)
	if err != nil {
		return nil, "", err
	}
	if len(pending) > 0 {
		return nil, sweepSkipped, nil
	}

	discard := func(reason string) (*Completion, string, error) {
		if err := s.deps.Repos.Activities.DeleteByID(ctx, tx, act.ID); err != nil {
			return nil, "", err
		}
		s.log.Debug("stale activity discarded", "activity_id", act.ID, "user_id", act.UserID, "reason", reason)
		return nil, sweepDiscarded, nil
	}

	if time.Duration(act.DurationMs)*time.Millisecond < s.deps.Rules.Sessionizer.MinMeaningful {
		return discard("too_short")
	}
	user, err := s.deps.Repos.Users.GetByID(ctx, tx, act.UserID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return discard("missing_user")
	}
	label, err := s.deps.Labels.Lookup(dbc, act.ContentKey)
	if err != nil {
		return nil, "", err
	}
	if !label.Ready() {
		return nil, sweepDeferred, nil
	}
	profile, err := s.currentProfile(dbc, user)
	if err != nil {
		return nil, "", err
	}
	if profile == nil {
		return discard("missing_profile")
	}
	if !strings.EqualFold(profile.LanguageCode, label.LanguageCode) {
		s.log.Info("off-target content discarded",
			"user_id", act.UserID,
			"content_key", act.ContentKey,
			"label_language", label.LanguageCode,
			"target_language", profile.LanguageCode,
		)
		return discard("off_target")
	}

	c, err := s.Complete(dbc, CompleteInput{
		User:       user,
		Profile:    profile,
		Activity:   act,
		ContentKey: act.ContentKey,
		Title:      label.Title,
		Start:      act.StartedAt,
		End:        act.LastEventAt,
	})
	if err != nil {
		return nil, "", err
	}
	return &c, sweepCompleted, nil
}
