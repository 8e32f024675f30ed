// Package progression is the entry point for everything that moves a learner's
// streak and experience: ping ingestion, manual entries, deletions, the
// periodic sweeps and the status projection.
package progression

import (
	"context"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/labeling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/experience"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/sessionizer"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/streak"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type UsecasesDeps struct {
	Log     *logger.Logger
	Rules   rules.Rules
	Writer  *aggregates.Writer
	Repos   repos.Set
	Labels  labeling.Source
	Notify  model.Notifier
	Metrics *observability.Metrics

	// SessionizerConcurrency bounds how many event groups are processed at once.
	SessionizerConcurrency int
	Now                    func() time.Time
}

type Usecases struct {
	deps       UsecasesDeps
	log        *logger.Logger
	streaks    *streak.Ledger
	experience *experience.Ledger
	sessions   *sessionizer.Service
}

func New(deps UsecasesDeps) *Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Notify == nil {
		deps.Notify = model.NopNotifier{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	streaks := streak.New(streak.Deps{
		Log:            deps.Log,
		Rules:          deps.Rules,
		Users:          deps.Repos.Users,
		StreakDays:     deps.Repos.StreakDays,
		StreakLedger:   deps.Repos.StreakLedger,
		VacationLedger: deps.Repos.VacationLedger,
	})
	exp := experience.New(experience.Deps{
		Log:              deps.Log,
		Rules:            deps.Rules,
		Guard:            deps.Writer.Guard(),
		Users:            deps.Repos.Users,
		Profiles:         deps.Repos.Profiles,
		Activities:       deps.Repos.Activities,
		StreakDays:       deps.Repos.StreakDays,
		ExperienceLedger: deps.Repos.ExperienceLedger,
	})
	sessions := sessionizer.New(sessionizer.Deps{
		Log:         deps.Log,
		Rules:       deps.Rules,
		Writer:      deps.Writer,
		Repos:       deps.Repos,
		Labels:      deps.Labels,
		Streaks:     streaks,
		Experience:  exp,
		Notifier:    deps.Notify,
		Metrics:     deps.Metrics,
		Concurrency: deps.SessionizerConcurrency,
		Now:         deps.Now,
	})
	return &Usecases{
		deps:       deps,
		log:        deps.Log.With("module", "progression"),
		streaks:    streaks,
		experience: exp,
		sessions:   sessions,
	}
}

func (u *Usecases) Rules() rules.Rules { return u.deps.Rules }

// ProcessBatch runs one sessionizer batch over up to limit event groups.
func (u *Usecases) ProcessBatch(ctx context.Context, limit int) (sessionizer.BatchResult, error) {
	return u.sessions.ProcessBatch(ctx, limit)
}

// SweepStale finalizes or drops in-progress activities that stopped receiving pings.
func (u *Usecases) SweepStale(ctx context.Context) (sessionizer.SweepResult, error) {
	return u.sessions.SweepStale(ctx)
}

func (u *Usecases) publish(ctx context.Context, notes []model.Notification) {
	for _, n := range notes {
		if err := u.deps.Notify.Publish(ctx, n); err != nil {
			u.log.Warn("progression notification publish failed", "type", n.Type, "user_id", n.UserID, "error", err)
		}
	}
}
