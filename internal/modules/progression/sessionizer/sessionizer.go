// Package sessionizer rebuilds study sessions from raw playback pings and hands
// completed sessions to the streak and experience ledgers.
//
// Each (user, content key) group is processed in its own transaction. Raw events
// are deleted or flagged in the same transaction as the state change they fed,
// so re-running a batch after a crash never credits a session twice.
package sessionizer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/labeling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/experience"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const defaultConcurrency = 4

type Deps struct {
	Log         *logger.Logger
	Rules       rules.Rules
	Writer      *aggregates.Writer
	Repos       repos.Set
	Labels      labeling.Source
	Streaks     *streak.Ledger
	Experience  *experience.Ledger
	Notifier    progression.Notifier
	Metrics     *observability.Metrics
	Concurrency int
	Now         func() time.Time
}

type Service struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Notifier == nil {
		deps.Notifier = progression.NopNotifier{}
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, log: deps.Log.With("service", "Sessionizer")}
}

// BatchResult summarizes one ProcessBatch run.
type BatchResult struct {
	Groups              int `json:"groups"`
	Processed           int `json:"processed"`
	CreatedActivities   int `json:"created_activities"`
	CompletedActivities int `json:"completed_activities"`
	Maintained          int `json:"maintained"`
	WaitingOnLabel      int `json:"waiting_on_label"`
	OffTarget           int `json:"off_target"`
	Orphaned            int `json:"orphaned"`
	TooShort            int `json:"too_short"`
	Dropped             int `json:"dropped"`
	Failed              int `json:"failed"`
}

func (r *BatchResult) add(g groupResult) {
	r.Groups++
	r.Processed += g.events
	r.CreatedActivities += g.created
	r.CompletedActivities += g.completed
	r.Orphaned += g.orphaned
	r.TooShort += g.tooShort
	if g.maintained {
		r.Maintained++
	}
	switch g.outcome {
	case observability.OutcomeWaiting:
		r.WaitingOnLabel++
	case observability.OutcomeOffTarget:
		r.OffTarget++
	case observability.OutcomeMissingUser:
		r.Dropped++
	}
}

type groupResult struct {
	outcome       string
	events        int
	orphaned      int
	tooShort      int
	created       int
	completed     int
	maintained    bool
	completions   []Completion
	notifications []progression.Notification
}

// ProcessBatch consumes up to limit pending (user, content key) groups.
func (s *Service) ProcessBatch(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = s.deps.Rules.Sessionizer.DefaultBatchLimit
	}
	now := s.deps.Now().UTC()
	retryBefore := now.Add(-s.deps.Rules.Sessionizer.LabelRetryDelay)

	groups, err := s.deps.Repos.RawEvents.ListPendingGroups(ctx, nil, retryBefore, limit)
	if err != nil {
		return BatchResult{}, err
	}
	var (
		mu  sync.Mutex
		res BatchResult
	)
	if len(groups) == 0 {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Concurrency)
	for _, key := range groups {
		key := key
		g.Go(func() error {
			out, err := s.processGroup(gctx, key, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Failed++
				s.log.Warn("sessionize group failed",
					"user_id", key.UserID,
					"content_key", key.ContentKey,
					"error", err,
				)
				return nil
			}
			res.add(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if res.Processed > 0 || res.Failed > 0 {
		s.log.Info("sessionize batch done",
			"groups", res.Groups,
			"processed", res.Processed,
			"created", res.CreatedActivities,
			"completed", res.CompletedActivities,
			"waiting", res.WaitingOnLabel,
			"off_target", res.OffTarget,
			"failed", res.Failed,
		)
	}
	return res, nil
}

func (s *Service) processGroup(ctx context.Context, key repos.EventGroupKey, now time.Time) (groupResult, error) {
	ctx, span := observability.StartSpan(ctx, "sessionizer.group",
		attribute.String("content_key", key.ContentKey))
	var out groupResult
	err := s.deps.Writer.Write(ctx, "sessionizer.group", func(dbc dbctx.Context) error {
		out = groupResult{}
		return s.walkGroup(dbc, key, now, &out)
	})
	observability.EndSpan(span, err)
	if err != nil {
		return groupResult{}, err
	}
	s.afterCommit(ctx, out)
	return out, nil
}

func (s *Service) walkGroup(dbc dbctx.Context, key repos.EventGroupKey, now time.Time, out *groupResult) error {
	ctx, tx := dbc.Ctx, dbc.Tx
	cfg := s.deps.Rules.Sessionizer

	events, err := s.deps.Repos.RawEvents.ListByGroup(ctx, tx, key, cfg.MaxGroupEvents)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	// A capped read may stop mid-session; later pings decide whether it is over.
	truncated := cfg.MaxGroupEvents > 0 && len(events) >= cfg.MaxGroupEvents
	out.events = len(events)
	allIDs := eventIDs(events)

	user, err := s.deps.Repos.Users.GetByID(ctx, tx, key.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		out.outcome = observability.OutcomeMissingUser
		s.log.Warn("dropping events for unknown user", "user_id", key.UserID, "events", len(allIDs))
		_, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, allIDs)
		return err
	}

	inProgress, err := s.deps.Repos.Activities.GetInProgress(ctx, tx, key.UserID, key.ContentKey)
	if err != nil {
		return err
	}
	var seed *Session
	if inProgress != nil {
		seed = &Session{Start: inProgress.StartedAt.UTC(), End: inProgress.LastEventAt.UTC(), Seeded: true}
	}

	walk := WalkPings(seed, PingsFrom(events), cfg.GapThreshold)
	if len(walk.Orphans) > 0 {
		if _, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, walk.Orphans); err != nil {
			return err
		}
		out.orphaned = len(walk.Orphans)
	}

	candidates := walk.Closed
	open := walk.Open
	if open != nil && !truncated && now.Sub(open.End) > cfg.GapThreshold {
		candidates = append(candidates, *open)
		open = nil
	}
	closed, seedDropped, err := s.dropTooShort(dbc, candidates, inProgress, out)
	if err != nil {
		return err
	}
	if seedDropped {
		inProgress = nil
	}

	if len(closed) == 0 {
		if open == nil {
			if out.tooShort > 0 {
				out.outcome = observability.OutcomeTooShort
			} else {
				out.outcome = observability.OutcomeOrphaned
			}
			return nil
		}
		out.outcome = observability.OutcomeMaintained
		out.maintained = true
		return s.maintain(dbc, key, inProgress, *open, "", out)
	}

	label, err := s.deps.Labels.Lookup(dbc, key.ContentKey)
	if err != nil {
		return err
	}
	if !label.Ready() {
		out.outcome = observability.OutcomeWaiting
		return s.deps.Repos.RawEvents.MarkWaitingOnLabeling(ctx, tx, walk.EventIDs(), now)
	}

	profile, err := s.currentProfile(dbc, user)
	if err != nil {
		return err
	}
	if profile == nil {
		out.outcome = observability.OutcomeMissingUser
		s.log.Warn("dropping events without a target language profile", "user_id", key.UserID, "content_key", key.ContentKey)
		_, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, walk.EventIDs())
		return err
	}
	if !strings.EqualFold(profile.LanguageCode, label.LanguageCode) {
		out.outcome = observability.OutcomeOffTarget
		return s.discardOffTarget(dbc, key, inProgress, walk.EventIDs(), label.LanguageCode, profile.LanguageCode)
	}

	out.outcome = observability.OutcomeFinalized
	for _, sess := range closed {
		in := CompleteInput{
			User:       user,
			Profile:    profile,
			ContentKey: key.ContentKey,
			Title:      label.Title,
			Source:     sourceOf(events),
			Start:      sess.Start,
			End:        sess.End,
		}
		if sess.Seeded {
			in.Activity = inProgress
		}
		c, err := s.Complete(dbc, in)
		if err != nil {
			return err
		}
		if c.Created {
			out.created++
		}
		out.completed++
		out.completions = append(out.completions, c)
		out.notifications = append(out.notifications, c.Notifications...)
		if _, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, sess.EventIDs); err != nil {
			return err
		}
	}

	if open != nil {
		// The seeded activity was completed above if it closed; otherwise it is still live.
		var live *types.Activity
		if open.Seeded {
			live = inProgress
		}
		out.maintained = true
		return s.maintain(dbc, key, live, *open, label.Title, out)
	}
	return nil
}

// maintain upserts the in-progress activity for a still-open session and
// consumes the pings folded into it.
func (s *Service) maintain(dbc dbctx.Context, key repos.EventGroupKey, act *types.Activity, open Session, title string, out *groupResult) error {
	ctx, tx := dbc.Ctx, dbc.Tx
	created := act == nil
	if created {
		act = &types.Activity{
			UserID:     key.UserID,
			ContentKey: key.ContentKey,
			State:      progression.ActivityStateInProgress,
			StartedAt:  open.Start,
		}
	}
	if title != "" {
		act.Title = title
	}
	if open.Start.Before(act.StartedAt) {
		act.StartedAt = open.Start
	}
	act.LastEventAt = open.End
	if d := open.Duration().Milliseconds(); d > act.DurationMs {
		act.DurationMs = d
	}
	if created {
		if _, err := s.deps.Repos.Activities.Create(ctx, tx, act); err != nil {
			return err
		}
		out.created++
	} else if err := s.deps.Repos.Activities.Save(ctx, tx, act); err != nil {
		return err
	}
	_, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, open.EventIDs)
	return err
}

// dropTooShort discards sessions that ended in silence before reaching the
// minimum meaningful duration, along with their pings and any in-progress row
// they continued. Sessions closed by a pause or end are always kept.
func (s *Service) dropTooShort(dbc dbctx.Context, sessions []Session, inProgress *types.Activity, out *groupResult) ([]Session, bool, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	minimum := s.deps.Rules.Sessionizer.MinMeaningful
	kept := sessions[:0:0]
	seedDropped := false
	for _, sess := range sessions {
		if sess.Ended || sess.Duration() >= minimum {
			kept = append(kept, sess)
			continue
		}
		if _, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, sess.EventIDs); err != nil {
			return nil, false, err
		}
		if sess.Seeded && inProgress != nil {
			if err := s.deps.Repos.Activities.DeleteByID(ctx, tx, inProgress.ID); err != nil {
				return nil, false, err
			}
			seedDropped = true
		}
		out.tooShort += len(sess.EventIDs)
	}
	return kept, seedDropped, nil
}

func (s *Service) discardOffTarget(dbc dbctx.Context, key repos.EventGroupKey, inProgress *types.Activity, ids []uuid.UUID, labelLang, targetLang string) error {
	ctx, tx := dbc.Ctx, dbc.Tx
	if _, err := s.deps.Repos.RawEvents.DeleteByIDs(ctx, tx, ids); err != nil {
		return err
	}
	if inProgress != nil {
		if err := s.deps.Repos.Activities.DeleteByID(ctx, tx, inProgress.ID); err != nil {
			return err
		}
	}
	s.log.Info("off-target content discarded",
		"user_id", key.UserID,
		"content_key", key.ContentKey,
		"label_language", labelLang,
		"target_language", targetLang,
		"events", len(ids),
	)
	return nil
}

func (s *Service) currentProfile(dbc dbctx.Context, user *types.User) (*types.TargetLanguageProfile, error) {
	if user.CurrentTargetLanguageProfileID == nil {
		return nil, nil
	}
	p, err := s.deps.Repos.Profiles.GetByID(dbc.Ctx, dbc.Tx, *user.CurrentTargetLanguageProfileID)
	if err != nil || p == nil || p.UserID != user.ID {
		return nil, err
	}
	return p, nil
}

// afterCommit records metrics and publishes notifications. Publishing failures
// are logged and never fail the batch.
func (s *Service) afterCommit(ctx context.Context, out groupResult) {
	m := s.deps.Metrics
	m.AddEventsProcessed(out.outcome, out.events-out.orphaned-out.tooShort)
	m.AddEventsProcessed(observability.OutcomeOrphaned, out.orphaned)
	m.AddEventsProcessed(observability.OutcomeTooShort, out.tooShort)
	for _, c := range out.completions {
		m.IncStreakDecision(c.Credit.Decision)
		if c.Credit.VacationUsed() {
			m.IncVacationUse(progression.InitiatorUser)
		}
		if c.Award != nil {
			m.ObserveExperience(c.Award.Entry.DeltaExperience, c.Award.LevelsGained)
		}
	}
	s.publish(ctx, out.notifications)
}

func (s *Service) publish(ctx context.Context, notes []progression.Notification) {
	for _, n := range notes {
		if err := s.deps.Notifier.Publish(ctx, n); err != nil {
			s.log.Warn("progression notification publish failed", "type", n.Type, "user_id", n.UserID, "error", err)
		}
	}
}

func eventIDs(events []*types.RawActivityEvent) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func sourceOf(events []*types.RawActivityEvent) string {
	for _, e := range events {
		if e.Source != "" {
			return e.Source
		}
	}
	return ""
}
