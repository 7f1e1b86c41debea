package folio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/eringen/folio/logger"
)

// Warm loads the cached posts and gallery views so the next reader hits
// the store. The gallery is skipped when no gallery database is set.
func (c *Catalog) Warm(ctx context.Context) error {
	var errs []error
	if _, err := c.posts(ctx); err != nil {
		errs = append(errs, fmt.Errorf("posts: %w", err))
	}
	if c.cfg.GalleryDatabaseID != "" {
		if _, err := c.GalleryImages(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gallery: %w", err))
		}
	}
	return errors.Join(errs...)
}

// warmer refreshes the catalog cache on a fixed interval.
type warmer struct {
	scheduler gocron.Scheduler
	catalog   *Catalog
	timeout   time.Duration
}

func newWarmer(catalog *Catalog, every, timeout time.Duration) (*warmer, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	w := &warmer{scheduler: s, catalog: catalog, timeout: timeout}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(w.run),
		gocron.WithName("cache-warm"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create cache warm job: %w", err)
	}
	return w, nil
}

func (w *warmer) Start() {
	logger.Log.Info("starting cache warmer")
	w.scheduler.Start()
}

func (w *warmer) Stop() error {
	return w.scheduler.Shutdown()
}

func (w *warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	start := time.Now()
	if err := w.catalog.Warm(ctx); err != nil {
		logger.WarnWithFields("cache warm failed", logger.Fields{"error": err.Error()})
		return
	}
	logger.DebugWithFields("cache warmed", logger.Fields{"duration_ms": time.Since(start).Milliseconds()})
}
