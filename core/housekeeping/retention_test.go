package housekeeping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"saker-rro/config"
	"saker-rro/core/register"
	"saker-rro/core/store"
	"saker-rro/core/utils"
)

func setupRetentionEnv(t *testing.T) (*Retention, *register.Service, *store.DB) {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: store.DriverSQLite,
		DBPath:   filepath.Join(t.TempDir(), "retention.db"),
		Retention: config.RetentionConfig{
			Enabled: true,
			Days:    30,
		},
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	versions := store.NewVersionsStore()
	audits := store.NewAuditStore()
	svc := register.NewService(db,
		store.NewRegistersStore(),
		store.NewStepsStore(),
		versions,
		audits,
		store.NewCategoriesStore(),
		logger,
	)
	return NewRetention(cfg.Retention, db, versions, audits, logger), svc, db
}

func TestRunOncePurgesOnlyAgedOrphanedStreams(t *testing.T) {
	ret, svc, db := setupRetentionEnv(t)
	ctx := context.Background()
	risk, _ := register.DescriptorFor(register.KindRisk)

	live, err := svc.CreateEntity(ctx, risk, register.CreateEntityInput{
		Title: "still tracked", Likelihood: 3, Consequence: 3,
	})
	if err != nil {
		t.Fatalf("create live: %v", err)
	}
	gone, err := svc.CreateEntity(ctx, risk, register.CreateEntityInput{
		Title: "deleted long ago", Likelihood: 2, Consequence: 2,
	})
	if err != nil {
		t.Fatalf("create gone: %v", err)
	}
	if err := svc.DeleteEntity(ctx, risk, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The deleted entity's streams are younger than the window: retained.
	if err := ret.RunOnce(ctx, utils.NowUTC()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	vers, _ := store.NewVersionsStore().List(ctx, db, store.OwnerTypeEntity, gone.ID)
	if len(vers) != 1 {
		t.Fatalf("young orphan purged early: %d rows", len(vers))
	}

	// Pretend the window has passed.
	if err := ret.RunOnce(ctx, utils.NowUTC().Add(31*24*time.Hour)); err != nil {
		t.Fatalf("aged sweep: %v", err)
	}
	vers, _ = store.NewVersionsStore().List(ctx, db, store.OwnerTypeEntity, gone.ID)
	if len(vers) != 0 {
		t.Errorf("aged orphan versions survived: %d rows", len(vers))
	}
	audit, _ := store.NewAuditStore().ListByOwner(ctx, db, gone.ID, 0)
	if len(audit) != 0 {
		t.Errorf("aged orphan audit survived: %d rows", len(audit))
	}

	// Live streams are never touched regardless of age.
	vers, _ = store.NewVersionsStore().List(ctx, db, store.OwnerTypeEntity, live.ID)
	if len(vers) != 1 {
		t.Errorf("live stream purged: %d rows", len(vers))
	}
}
