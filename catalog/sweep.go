package catalog

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/metrics"
)

// OrphanAge is the age after which unreferenced uploads are swept
const OrphanAge = 24 * time.Hour

// SweepOrphans deletes product images which no product references and which
// are older than olderThan. Younger images may still belong to a product form
// that has not been saved yet. It returns the number of deleted images.
func (s *Service) SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	docs, err := s.products.List(ctx, baas.OrderCreatedDesc)
	if err != nil {
		return 0, err
	}
	referenced := map[string]bool{}
	for _, doc := range docs {
		p, err := productFromDocument(doc)
		if err != nil {
			// an unreadable product might still reference images
			return 0, err
		}
		for _, key := range p.Images {
			referenced[key] = true
		}
	}

	blobs, err := s.blobs.List(ctx, ImagePrefix)
	if err != nil {
		return 0, err
	}
	rlog := logger.FromContext(ctx)
	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, b := range blobs {
		if referenced[b.Key] || b.LastModified.After(cutoff) {
			continue
		}
		if err := s.blobs.Delete(ctx, b.Key); err != nil {
			rlog.WithError(err).Warnf("cannot sweep image %s", b.Key)
			continue
		}
		rlog.Debugf("swept orphaned image %s", b.Key)
		removed++
	}
	metrics.RecordSweep(removed)
	return removed, nil
}

// ScheduleSweep adds the orphan sweep to the cron scheduler. spec is a
// standard cron expression, e.g. "@hourly".
func (s *Service) ScheduleSweep(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, rlog := logger.ContextWithLogger(context.Background())
		removed, err := s.SweepOrphans(ctx, OrphanAge)
		if err != nil {
			rlog.WithError(err).Errorf("Error 3004: image sweep failed")
			return
		}
		if removed > 0 {
			rlog.Infof("image sweep removed %d orphaned images", removed)
		}
	})
}
