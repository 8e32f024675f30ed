// Package labeling reads content labels produced by the external labeling
// pipeline. Lookups never block on the pipeline; an unready label is reported
// as-is and the caller retries later.
package labeling

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/observability"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// Source returns the current label for a content key, or nil when none exists.
type Source interface {
	Lookup(dbc dbctx.Context, contentKey string) (*types.ContentLabel, error)
}

// Store reads the content_label table.
type Store struct {
	repo repos.ContentLabelRepo
}

func NewStore(repo repos.ContentLabelRepo) *Store {
	return &Store{repo: repo}
}

func (s *Store) Lookup(dbc dbctx.Context, contentKey string) (*types.ContentLabel, error) {
	return s.repo.Get(dbc.Ctx, dbc.Tx, contentKey)
}

// KV is the string cache Cached writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const (
	defaultCacheTTL = 10 * time.Minute
	keyPrefix       = "label:"
)

// Cached fronts a Source with a read-through cache. Only terminal labels are
// cached; queued and processing labels always go to the source.
type Cached struct {
	next    Source
	kv      KV
	ttl     time.Duration
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewCached(log *logger.Logger, next Source, kv KV, ttl time.Duration, metrics *observability.Metrics) *Cached {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cached{
		next:    next,
		kv:      kv,
		ttl:     ttl,
		metrics: metrics,
		log:     log.With("service", "LabelCache"),
	}
}

func (c *Cached) Lookup(dbc dbctx.Context, contentKey string) (*types.ContentLabel, error) {
	key := keyPrefix + strings.TrimSpace(contentKey)
	if raw, ok, err := c.kv.Get(dbc.Ctx, key); err != nil {
		c.log.Warn("label cache read failed", "content_key", contentKey, "error", err)
		c.metrics.IncLabelLookup(observability.CacheBypass)
		return c.next.Lookup(dbc, contentKey)
	} else if ok {
		var label types.ContentLabel
		if err := json.Unmarshal([]byte(raw), &label); err == nil {
			c.metrics.IncLabelLookup(observability.CacheHit)
			return &label, nil
		}
		c.log.Warn("bad cached label payload", "content_key", contentKey)
	}

	c.metrics.IncLabelLookup(observability.CacheMiss)
	label, err := c.next.Lookup(dbc, contentKey)
	if err != nil || !label.Terminal() {
		return label, err
	}
	if raw, err := json.Marshal(label); err == nil {
		if err := c.kv.Set(dbc.Ctx, key, string(raw), c.ttl); err != nil {
			c.log.Warn("label cache write failed", "content_key", contentKey, "error", err)
		}
	}
	return label, nil
}
