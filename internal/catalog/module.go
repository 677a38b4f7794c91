package catalog

import (
	apphttp "solar_crm_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *Handler
	catalog *Catalog
}

func NewModule(pool *pgxpool.Pool) (*Module, error) {
	cat, err := Load()
	if err != nil {
		return nil, err
	}
	return &Module{
		handler: NewHandler(cat, NewRepository(pool)),
		catalog: cat,
	}, nil
}

func (m *Module) Name() string { return "catalog" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.V1.Group("/public"))

	admin := ctx.Protected.Group("")
	admin.Use(ctx.MasterOnly)
	m.handler.RegisterAdminRoutes(admin)
}

func (m *Module) Catalog() *Catalog { return m.catalog }
