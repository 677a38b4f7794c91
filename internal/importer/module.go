package importer

import (
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the import upload endpoints under the lead management API.
type Module struct {
	handler *Handler
	repo    *Repository
}

func NewModule(pool *pgxpool.Pool, queue Enqueuer, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler: NewHandler(repo, queue, log),
		repo:    repo,
	}
}

func (m *Module) Name() string { return "importer" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.Use(ctx.MasterOnly)
	m.handler.RegisterRoutes(group)
}

func (m *Module) Repository() *Repository { return m.repo }
