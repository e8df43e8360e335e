package audit

import (
	apphttp "buyback_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the audit bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := New(pool)
	return &Module{handler: NewHandler(repo), repo: repo}
}

func (m *Module) Name() string {
	return "audit"
}

// Repository exposes the state log store for other modules' transactions.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the audit reporting routes under the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/audit"))
}

var _ apphttp.Module = (*Module)(nil)
