// Package main seeds demo inventory data for local development.
//
// The server initializes its own schema on first startup when
// database.auto_migrate is set; this command fills the inventory with a
// plausible stock spread so the allocation endpoints have something to chew.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodbank.io/becs/internal/config"
	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/infrastructure"
	"bloodbank.io/becs/internal/pkg/logger"
	"bloodbank.io/becs/internal/repository/postgres"
)

const defaultSeedUnits = 40

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	units := buildPlan(defaultSeedUnits, time.Now().UTC())
	repo := postgres.NewUnitRepository(db.Pool)
	for _, u := range units {
		if err := repo.Insert(ctx, u); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	hasher := audit.NewHasher(cfg.Audit.HashPepper)
	ledger := audit.NewLedger(postgres.NewAuditRepository(db.Pool, hasher), hasher,
		audit.WithFailureMode(audit.FailClosed))
	if err := ledger.Record(ctx, audit.Entry{
		ActorType: audit.ActorTypeSystem,
		Action:    "seed.completed",
		Details:   fmt.Sprintf(`{"units":%d}`, len(units)),
		Success:   true,
	}); err != nil {
		return fmt.Errorf("record seed audit entry: %w", err)
	}

	logger.Info("Seed completed", zap.Int("units", len(units)))
	return nil
}

// buildPlan spreads total units over the blood types proportionally to their
// population frequency, with at least one unit per type and donation dates
// scattered over the past month.
func buildPlan(total int, now time.Time) []domain.BloodUnit {
	rarity := domain.DefaultRarityTable()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	var units []domain.BloodUnit
	for _, t := range domain.AllBloodTypes {
		count := int(float64(total) * rarity.Weight(t))
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			donorID := fmt.Sprintf("seed-donor-%s-%d", t.String(), i)
			units = append(units, domain.BloodUnit{
				ID:           uuid.Must(uuid.NewV7()).String(),
				Type:         t,
				DonationDate: now.AddDate(0, 0, -rng.Intn(30)),
				DonorID:      donorID,
				DonorName:    fmt.Sprintf("Seed Donor %s %d", t.String(), i),
				Status:       domain.UnitStatusAvailable,
				CreatedAt:    now,
			})
		}
	}
	return units
}
