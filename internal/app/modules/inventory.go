package modules

import (
	"context"

	"github.com/riverqueue/river"

	"bloodbank.io/becs/internal/api/handlers"
	"bloodbank.io/becs/internal/jobs"
	"bloodbank.io/becs/internal/notification"
	"bloodbank.io/becs/internal/repository/postgres"
	"bloodbank.io/becs/internal/service"
)

// InventoryModule owns the unit inventory: the store, the intake service,
// the allocation engine, and the stock watcher.
type InventoryModule struct {
	infra      *Infrastructure
	units      *postgres.UnitRepository
	inventory  *service.InventoryService
	allocation *service.AllocationService
}

// NewInventoryModule wires the inventory dependencies.
func NewInventoryModule(infra *Infrastructure) *InventoryModule {
	units := postgres.NewUnitRepository(infra.Pool)
	notification.NewTriggers(notification.NewLogSender()).Subscribe(infra.Events)
	return &InventoryModule{
		infra:      infra,
		units:      units,
		inventory:  service.NewInventoryService(units, infra.Ledger, infra.Events),
		allocation: service.NewAllocationService(units, infra.Rarity, infra.Ledger, infra.Events),
	}
}

func (m *InventoryModule) Name() string { return "inventory" }

func (m *InventoryModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Pool = m.infra.Pool
	deps.Inventory = m.inventory
	deps.Allocation = m.allocation
}

func (m *InventoryModule) RegisterWorkers(workers *river.Workers) {
	river.AddWorker(workers, jobs.NewStockWatchWorker(m.units, m.infra.Events, m.infra.Config.Inventory.ONegFloor))
}

func (m *InventoryModule) PeriodicJobs() []*river.PeriodicJob {
	interval := m.infra.Config.Inventory.StockWatchInterval
	if interval <= 0 {
		interval = jobs.DefaultStockWatchInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return jobs.StockWatchArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

func (m *InventoryModule) Shutdown(context.Context) error { return nil }
