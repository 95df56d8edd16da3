package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"saker-rro/config"
	"saker-rro/core/store"
	"saker-rro/core/utils"
)

// Retention sweeps version and audit streams whose owning entity has been
// deleted, once the rows have aged past the configured window. Streams of
// live entities are append-only and never touched.
type Retention struct {
	cfg      config.RetentionConfig
	db       *store.DB
	versions store.VersionsStore
	audits   store.AuditStore
	logger   *utils.Logger
	cron     *cron.Cron
}

func NewRetention(cfg config.RetentionConfig, db *store.DB, versions store.VersionsStore,
	audits store.AuditStore, logger *utils.Logger) *Retention {
	return &Retention{cfg: cfg, db: db, versions: versions, audits: audits, logger: logger}
}

func (r *Retention) Start() error {
	if r == nil || !r.cfg.Enabled {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(r.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := r.RunOnce(ctx, utils.NowUTC()); err != nil {
			r.logger.Errorf("housekeeping: retention sweep: %v", err)
		}
	})
	if err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.logger.Printf("housekeeping: retention sweep scheduled (%s, %d days)", r.cfg.Schedule, r.cfg.Days)
	return nil
}

func (r *Retention) Stop(ctx context.Context) error {
	if r == nil || r.cron == nil {
		return nil
	}
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Retention) RunOnce(ctx context.Context, now time.Time) error {
	cutoff := now.AddDate(0, 0, -r.cfg.Days)
	return r.db.RunInTx(ctx, func(tx *store.Tx) error {
		nVersions, err := r.versions.PurgeOrphaned(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		nAudits, err := r.audits.PurgeOrphaned(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		if nVersions > 0 || nAudits > 0 {
			r.logger.Printf("housekeeping: purged %d version rows, %d audit rows older than %s",
				nVersions, nAudits, cutoff.Format(time.RFC3339))
		}
		return nil
	})
}
