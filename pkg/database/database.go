package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/curaflow/curaflow/config"
	"github.com/curaflow/curaflow/internal/domain"
	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/internal/domain/slotblock"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/pkg/sequence"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		DisableAutomaticPing:                     false,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: false,
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "scheduling", "ops"} // logical namespaces
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&directory.Patient{},
		&directory.Provider{},
		&directory.Location{},
		&directory.MedicalService{},
		&directory.ProviderService{},
		&slotblock.SlotBlock{},
		&slot.Slot{},
		&appointment.Appointment{},
		&visit.Visit{},
		&visit.Encounter{},
		&visit.VisitNote{},
		&domain.ChangeLog{},
		&sequence.Row{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		query string
	}{
		// At most one non-cancelled appointment may reference a slot.
		{
			name:  "uq_appointments_slot_live",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_slot_live ON clinical.appointments (slot_id) WHERE slot_id IS NOT NULL AND state <> 'cancelled' AND deleted_at IS NULL`,
		},
		// Availability listing: unbooked active slots by provider/service.
		{
			name:  "idx_slots_available",
			query: `CREATE INDEX IF NOT EXISTS idx_slots_available ON scheduling.slots (provider_id, service_id, start_time) WHERE is_booked = false AND active = true`,
		},
		// Block overlap check per provider.
		{
			name:  "idx_slot_blocks_provider_date",
			query: `CREATE INDEX IF NOT EXISTS idx_slot_blocks_provider_date ON scheduling.slot_blocks (provider_id, date) WHERE deleted_at IS NULL AND status <> 'draft'`,
		},
		// Reaper input: overdue scheduled appointments.
		{
			name:  "idx_appointments_overdue",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_overdue ON clinical.appointments (start_time) WHERE state = 'scheduled' AND deleted_at IS NULL`,
		},
		// Single-active-visit invariant, enforced at the storage layer too.
		{
			name:  "uq_visits_active_per_patient",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_visits_active_per_patient ON clinical.visits (patient_id) WHERE state = 'active' AND deleted_at IS NULL`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}

	return nil
}
