// Package scheduling provides the slot allocation bounded context module:
// availability, booking and appointment status management.
package scheduling

import (
	"context"
	"errors"

	"buyback_backend/internal/events"
	apphttp "buyback_backend/internal/http"
	leadsrepo "buyback_backend/internal/leads/repository"
	"buyback_backend/internal/scheduling/handler"
	"buyback_backend/internal/scheduling/repository"
	"buyback_backend/internal/scheduling/service"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"
	"buyback_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scheduling bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the scheduling module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	directory := &leadDirectory{repo: leadsrepo.New(pool)}

	svc, err := service.New(repo, directory, eventBus, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scheduling"
}

// RegisterRoutes mounts the scheduling routes on the router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(
		ctx.V1.Group("/slots"),
		ctx.V1.Group("/appointments"),
	)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// leadDirectory adapts the leads repository to the narrow view the
// scheduling service needs.
type leadDirectory struct {
	repo *leadsrepo.Repository
}

func (d *leadDirectory) LeadByID(ctx context.Context, id uuid.UUID) (service.LeadInfo, error) {
	lead, err := d.repo.GetLeadByID(ctx, id)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return service.LeadInfo{}, repository.ErrLeadNotFound
		}
		return service.LeadInfo{}, err
	}
	return service.LeadInfo{
		ID:         lead.ID,
		Email:      lead.Email,
		Address:    lead.Address,
		SellMethod: lead.SellMethod,
		DistanceKm: lead.DistanceKm,
		IsVerified: lead.IsVerified,
	}, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
