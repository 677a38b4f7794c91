// Package leads provides the lead pipeline bounded context module.
package leads

import (
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/internal/leads/handler"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/service"
	"solar_crm_backend/platform/events"
	"solar_crm_backend/platform/logger"
	"solar_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	svc           *service.Service
	handler       *handler.Handler
	publicHandler *handler.PublicHandler
	repo          *repository.Repository
}

// NewModule wires the leads repository, service and handlers.
func NewModule(pool *pgxpool.Pool, bus events.Bus, codes service.CodeStore, objects handler.ObjectStore, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, codes, log)

	return &Module{
		svc:           svc,
		handler:       handler.New(svc, val, objects),
		publicHandler: handler.NewPublic(svc, val, objects),
		repo:          repo,
	}
}

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.publicHandler.RegisterRoutes(ctx.V1.Group("/public"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"), ctx.MasterOnly)
	m.handler.RegisterDashboardRoutes(ctx.Protected.Group("/dashboard"))
}

// Service exposes the lead service for cross-module wiring (CSV import).
func (m *Module) Service() *service.Service { return m.svc }

// Repository exposes the repository for modules that write leads directly.
func (m *Module) Repository() *repository.Repository { return m.repo }
