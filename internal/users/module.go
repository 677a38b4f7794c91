// Package users manages vendor and master-admin accounts and profiles.
package users

import (
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/internal/users/handler"
	"solar_crm_backend/internal/users/repository"
	"solar_crm_backend/internal/users/service"
	"solar_crm_backend/platform/logger"
	"solar_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

func NewModule(pool *pgxpool.Pool, codes service.CodeStore, objects handler.ObjectStore, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, codes, log)
	return &Module{
		handler: handler.New(svc, val, objects),
		svc:     svc,
	}
}

func (m *Module) Name() string { return "users" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	vendors := ctx.Protected.Group("/vendors")
	vendors.Use(ctx.MasterOnly)
	m.handler.RegisterVendorRoutes(vendors)

	admins := ctx.Protected.Group("/admins")
	admins.Use(ctx.MasterOnly)
	m.handler.RegisterAdminRoutes(admins)

	m.handler.RegisterProfileRoutes(ctx.Protected)
}

func (m *Module) Service() *service.Service { return m.svc }
