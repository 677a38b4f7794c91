// Package auth provides login and password reset endpoints.
package auth

import (
	"solar_crm_backend/internal/auth/handler"
	"solar_crm_backend/internal/auth/repository"
	"solar_crm_backend/internal/auth/service"
	"solar_crm_backend/internal/events"
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/platform/config"
	"solar_crm_backend/platform/logger"
	"solar_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

func NewModule(pool *pgxpool.Pool, cfg *config.Config, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		svc:     svc,
	}
}

func (m *Module) Name() string { return "auth" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/auth"))
}

func (m *Module) Service() *service.Service { return m.svc }
