package exports

import (
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/internal/leads/service"
)

type Module struct {
	handler *Handler
}

func NewModule(leads *service.Service) *Module {
	return &Module{handler: NewHandler(leads)}
}

func (m *Module) Name() string { return "exports" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}
