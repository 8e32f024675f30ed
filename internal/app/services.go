package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/clients/redis"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	model "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline"
	jobrt "github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/labeling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Services struct {
	Rules       rules.Rules
	Progression *progression.Usecases
	Jobs        *jobrt.Registry
}

func wireServices(log *logger.Logger, cfg Config, theDB *gorm.DB, reposet repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return Services{}, fmt.Errorf("load progression rules: %w", err)
	}

	var labels labeling.Source = labeling.NewStore(reposet.ContentLabels)
	if clients.Redis != nil {
		labels = labeling.NewCached(log, labels, redis.NewKV(clients.Redis), cfg.LabelCacheTTL, metrics)
	}

	var notify model.Notifier = model.NopNotifier{}
	if clients.Bus != nil {
		notify = clients.Bus
	}

	writer := aggregates.NewWriter(aggregates.BaseDeps{
		DB:    theDB,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	})

	uc := progression.New(progression.UsecasesDeps{
		Log:                    log,
		Rules:                  rs,
		Writer:                 writer,
		Repos:                  reposet,
		Labels:                 labels,
		Notify:                 notify,
		Metrics:                metrics,
		SessionizerConcurrency: cfg.SessionizerConcurrency,
	})

	registry, err := pipeline.NewRegistry(log, uc, cfg.BatchLimit)
	if err != nil {
		return Services{}, fmt.Errorf("register jobs: %w", err)
	}

	return Services{Rules: rs, Progression: uc, Jobs: registry}, nil
}
