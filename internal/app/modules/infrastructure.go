package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"bloodbank.io/becs/internal/api/middleware"
	"bloodbank.io/becs/internal/config"
	"bloodbank.io/becs/internal/domain"
	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/infrastructure"
	"bloodbank.io/becs/internal/pkg/worker"
	"bloodbank.io/becs/internal/repository/postgres"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Ledger      *audit.Ledger
	Rarity      domain.RarityTable
	Events      *domain.EventDispatcher
}

// NewInfrastructure initializes DB/pools and shared services.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Dev-mode: auto-create inventory tables + River queue tables.
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		AuditPoolSize:   cfg.Worker.AuditPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	rarity := domain.DefaultRarityTable()
	if path := cfg.Inventory.RarityTablePath; path != "" {
		rarity, err = domain.LoadRarityTable(path)
		if err != nil {
			pools.Shutdown()
			db.Close()
			return nil, fmt.Errorf("load rarity table: %w", err)
		}
	}

	hasher := audit.NewHasher(cfg.Audit.HashPepper)
	ledger := audit.NewLedger(
		postgres.NewAuditRepository(db.Pool, hasher),
		hasher,
		audit.WithFailureMode(audit.FailureMode(cfg.Audit.FailureMode)),
		audit.WithMetaExtractor(middleware.GetAuditMeta),
		audit.WithSubmitter(func(task func(ctx context.Context)) error {
			return pools.SubmitDetached("audit", task)
		}),
	)

	return &Infrastructure{
		Config:      cfg,
		DB:          db,
		Pools:       pools,
		Pool:        db.Pool,
		RiverClient: db.RiverClient,
		Ledger:      ledger,
		Rarity:      rarity,
		Events:      domain.NewEventDispatcher(),
	}, nil
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, i.Config.River, periodic); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
