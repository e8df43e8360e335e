// Package leads provides the lead intake bounded context module: quote
// computation, lead creation and email verification.
package leads

import (
	"buyback_backend/internal/events"
	apphttp "buyback_backend/internal/http"
	"buyback_backend/internal/leads/handler"
	"buyback_backend/internal/leads/repository"
	"buyback_backend/internal/leads/service"
	"buyback_backend/internal/pricing"
	"buyback_backend/internal/routing"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"
	"buyback_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, engine *pricing.Engine, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	resolver := routing.NewService(cfg, engine, log)
	svc := service.New(repo, engine, resolver, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external consumers (the expiration
// sweep worker, the scheduling module).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the public lead routes on the router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(
		ctx.V1.Group("/quotes"),
		ctx.V1.Group("/leads"),
		ctx.V1.Group("/devices"),
	)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
