// Package refresh drives the fetch, merge, retain and publish cycle for
// the served artifacts.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tvhmux/tvhmux/archive"
	"github.com/tvhmux/tvhmux/cache"
	"github.com/tvhmux/tvhmux/circuitbreaker"
	"github.com/tvhmux/tvhmux/config"
	"github.com/tvhmux/tvhmux/epg"
	"github.com/tvhmux/tvhmux/logging"
	"github.com/tvhmux/tvhmux/m3u"
	"github.com/tvhmux/tvhmux/metrics"
	"github.com/tvhmux/tvhmux/playlist"
	"github.com/tvhmux/tvhmux/tvheadend"
)

// Artifact kinds, used as singleflight keys and metric labels
const (
	KindPlaylist = "playlist"
	KindEPG      = "epg"
)

// Orchestrator runs refresh cycles. At most one refresh per artifact
// kind is in flight at a time; concurrent requests for the same kind
// join the running cycle and share its outcome. Playlist and guide
// refreshes are independent and may overlap each other.
type Orchestrator struct {
	client     tvheadend.Interface
	merger     *playlist.Merger
	normalizer *epg.Normalizer
	retention  *epg.Store
	cache      *cache.Manager
	archive    *archive.Store
	breaker    circuitbreaker.CircuitBreaker
	logger     *logging.Logger

	epgAuth    string
	attempts   int
	retryDelay time.Duration

	playlistInterval time.Duration
	epgInterval      time.Duration

	group singleflight.Group
	now   func() time.Time
}

// New creates an Orchestrator. archiveStore may be nil to disable
// persistence.
func New(cfg *config.Config, client tvheadend.Interface, cacheMgr *cache.Manager, retention *epg.Store, archiveStore *archive.Store, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		client:     client,
		merger:     playlist.NewMerger(client, cfg),
		normalizer: epg.NewNormalizer(cfg.EPG.StripOffset),
		retention:  retention,
		cache:      cacheMgr,
		archive:    archiveStore,
		logger:     logger,

		epgAuth:    cfg.EPGAuth(),
		attempts:   cfg.Refresh.Attempts,
		retryDelay: cfg.Refresh.RetryDelay,

		playlistInterval: cfg.Refresh.PlaylistInterval,
		epgInterval:      cfg.Refresh.EPGInterval,

		now: time.Now,
	}

	o.breaker = circuitbreaker.New(circuitbreaker.Config{
		Name:             "backend",
		FailureThreshold: cfg.Refresh.BreakerThreshold,
		Timeout:          cfg.Refresh.BreakerTimeout,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetBreakerState(to.String())
			logger.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return o
}

// RefreshPlaylist runs one playlist refresh cycle, or joins one already
// in flight. The context of the caller that started the cycle drives
// the run; joining callers only wait for the shared result.
func (o *Orchestrator) RefreshPlaylist(ctx context.Context) error {
	_, err, _ := o.group.Do(KindPlaylist, func() (interface{}, error) {
		return nil, o.runPlaylist(ctx)
	})
	return err
}

// RefreshEPG runs one guide refresh cycle, or joins one already in
// flight.
func (o *Orchestrator) RefreshEPG(ctx context.Context) error {
	_, err, _ := o.group.Do(KindEPG, func() (interface{}, error) {
		return nil, o.runEPG(ctx)
	})
	return err
}

// RefreshAll refreshes both artifacts and reports every failure
func (o *Orchestrator) RefreshAll(ctx context.Context) error {
	return errors.Join(o.RefreshPlaylist(ctx), o.RefreshEPG(ctx))
}

func (o *Orchestrator) runPlaylist(ctx context.Context) error {
	runID := uuid.NewString()
	started := o.now()
	o.logger.LogRefreshStarted(KindPlaylist, runID)

	var doc *playlist.Document
	err := o.withRetries(ctx, KindPlaylist, runID, func() error {
		var err error
		doc, err = o.merger.Build(ctx)
		return err
	})
	if err != nil {
		o.logger.LogRefreshFailed(KindPlaylist, runID, err)
		metrics.RecordRefreshFailure(KindPlaylist)
		return err
	}

	rendered := doc.Render()
	published := o.now()
	o.cache.PublishPlaylist(rendered, doc.ChannelCount(), published)

	metrics.SetPlaylistStats(doc.ChannelCount())
	metrics.RecordRefreshSuccess(KindPlaylist, float64(published.Unix()))
	metrics.RefreshDuration.WithLabelValues(KindPlaylist).Observe(published.Sub(started).Seconds())

	if o.archive != nil {
		if err := o.archive.SavePlaylist(ctx, rendered, published); err != nil {
			o.logger.Warn("Failed to archive playlist", map[string]interface{}{
				"runID": runID,
				"error": err.Error(),
			})
		}
	}

	o.logger.LogRefreshPublished(KindPlaylist, runID, published.Sub(started))
	return nil
}

func (o *Orchestrator) runEPG(ctx context.Context) error {
	runID := uuid.NewString()
	started := o.now()
	o.logger.LogRefreshStarted(KindEPG, runID)

	var raw []byte
	err := o.withRetries(ctx, KindEPG, runID, func() error {
		var err error
		raw, err = o.client.FetchEPG(ctx, o.epgAuth)
		return err
	})
	if err != nil {
		o.logger.LogRefreshFailed(KindEPG, runID, err)
		metrics.RecordRefreshFailure(KindEPG)
		return err
	}

	tv, err := o.normalizer.Normalize(raw)
	if err != nil {
		o.logger.LogRefreshFailed(KindEPG, runID, err)
		metrics.RecordRefreshFailure(KindEPG)
		return err
	}

	stats := o.retention.Merge(tv, o.now())
	o.logger.LogRetentionSweep(runID, stats.Retained, stats.Replaced, stats.Orphaned, stats.EvictedAge, stats.EvictedSize)
	metrics.RecordEvictions(stats.EvictedAge, stats.EvictedSize)

	rendered, err := o.retention.Render()
	if err != nil {
		o.logger.LogRefreshFailed(KindEPG, runID, err)
		metrics.RecordRefreshFailure(KindEPG)
		return fmt.Errorf("failed to render guide: %w", err)
	}

	published := o.now()
	o.cache.PublishEPG(rendered, stats.Retained, published)

	metrics.SetEPGStats(stats.Retained, int(o.retention.Size()))
	metrics.RecordRefreshSuccess(KindEPG, float64(published.Unix()))
	metrics.RefreshDuration.WithLabelValues(KindEPG).Observe(published.Sub(started).Seconds())

	if o.archive != nil {
		if err := o.archive.SaveEPG(ctx, rendered, published); err != nil {
			o.logger.Warn("Failed to archive guide", map[string]interface{}{
				"runID": runID,
				"error": err.Error(),
			})
		}
	}

	o.logger.LogRefreshPublished(KindEPG, runID, published.Sub(started))
	return nil
}

// withRetries executes fn through the circuit breaker, retrying failed
// attempts after a fixed delay. An open circuit fails fast without
// consuming further attempts.
func (o *Orchestrator) withRetries(ctx context.Context, kind, runID string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		err := o.breaker.Execute(fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrHalfOpenLimitReached) {
			return err
		}
		metrics.RecordUpstreamError(kind)

		if attempt < o.attempts {
			o.logger.LogRefreshRetry(kind, runID, attempt, o.retryDelay, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.retryDelay):
			}
		}
	}
	return lastErr
}

// Bootstrap restores archived artifacts into the cache and retention
// store so the last good documents are served before the first refresh
// completes. Missing or unreadable artifacts are skipped.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	if o.archive == nil {
		return nil
	}

	content, updated, err := o.archive.LoadPlaylist(ctx)
	if err != nil {
		return fmt.Errorf("failed to load archived playlist: %w", err)
	}
	if content != "" {
		entries, err := m3u.Parse(content)
		if err != nil {
			o.logger.Warn("Archived playlist does not parse, skipping", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			o.cache.PublishPlaylist(content, len(entries), updated)
			metrics.SetPlaylistStats(len(entries))
			o.logger.Info("Restored archived playlist", map[string]interface{}{
				"channels":  len(entries),
				"published": updated.Format(time.RFC3339),
			})
		}
	}

	guide, updated, err := o.archive.LoadEPG(ctx)
	if err != nil {
		return fmt.Errorf("failed to load archived guide: %w", err)
	}
	if len(guide) > 0 {
		tv, err := o.normalizer.Normalize(guide)
		if err != nil {
			o.logger.Warn("Archived guide does not parse, skipping", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			o.retention.Restore(tv)
			o.cache.PublishEPG(guide, o.retention.Len(), updated)
			metrics.SetEPGStats(o.retention.Len(), int(o.retention.Size()))
			o.logger.Info("Restored archived guide", map[string]interface{}{
				"programmes": o.retention.Len(),
				"published":  updated.Format(time.RFC3339),
			})
		}
	}

	return nil
}

// RefreshMissing refreshes only the artifacts the cache does not hold
// yet. Called after Bootstrap at startup, it leaves restored artifacts
// alone until their scheduled refresh instead of refetching them on
// every restart.
func (o *Orchestrator) RefreshMissing(ctx context.Context) error {
	snap := o.cache.Current()

	var errs []error
	if !snap.HasPlaylist() {
		errs = append(errs, o.RefreshPlaylist(ctx))
	}
	if !snap.HasEPG() {
		errs = append(errs, o.RefreshEPG(ctx))
	}
	return errors.Join(errs...)
}

// Run fires scheduled refreshes until the context is cancelled. The
// first tick happens one full interval after Run starts; callers that
// want an immediate refresh trigger one before calling Run.
func (o *Orchestrator) Run(ctx context.Context) {
	playlistTicker := time.NewTicker(o.playlistInterval)
	defer playlistTicker.Stop()
	epgTicker := time.NewTicker(o.epgInterval)
	defer epgTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-playlistTicker.C:
			if err := o.RefreshPlaylist(ctx); err != nil {
				o.logger.Error("Scheduled playlist refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		case <-epgTicker.C:
			if err := o.RefreshEPG(ctx); err != nil {
				o.logger.Error("Scheduled guide refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
