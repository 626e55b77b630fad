// Package handlers implements the HTTP API over the services. Handlers stay
// thin: bind the request, call the service, write the response. Errors go
// through c.Error and the ErrorHandler middleware.
package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"bloodbank.io/becs/internal/governance/audit"
	"bloodbank.io/becs/internal/ml"
	"bloodbank.io/becs/internal/service"
)

// Server implements all API handlers.
type Server struct {
	pool        *pgxpool.Pool
	inventory   *service.InventoryService
	allocation  *service.AllocationService
	ledger      *audit.Ledger
	forecaster  ml.DemandForecaster
	eligibility ml.EligibilityModel
}

// ServerDeps holds all dependencies for creating a Server. Manual DI, no
// wire framework.
type ServerDeps struct {
	Pool        *pgxpool.Pool
	Inventory   *service.InventoryService
	Allocation  *service.AllocationService
	Ledger      *audit.Ledger
	Forecaster  ml.DemandForecaster
	Eligibility ml.EligibilityModel
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		pool:        deps.Pool,
		inventory:   deps.Inventory,
		allocation:  deps.Allocation,
		ledger:      deps.Ledger,
		forecaster:  deps.Forecaster,
		eligibility: deps.Eligibility,
	}
}
