package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Workflow   *inventory.Workflow
	Aggregator *inventory.StockAggregator
	Kardex     *inventory.KardexProjector
	Seed       *inventory.SeedUseCase
	Store      Pinger
	JWTSecret  string
	Tokens     ProposalTokens
	Log        zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
// Escriben admin y almacenero; supervisor solo consulta; la carga inicial es solo de admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	if deps.Store != nil {
		api.Use(RequireStore(deps.Store, deps.Log))
	}

	h := NewInventoryHandler(deps.Workflow, deps.Aggregator, deps.Kardex, deps.Seed, deps.Tokens, deps.Log)
	readers := RequireRole(RoleAdmin, RoleAlmacenero, RoleSupervisor)
	writers := RequireRole(RoleAdmin, RoleAlmacenero)

	// Movimientos: propuesta -> confirmación
	movements := api.Group("/movements")
	movements.Post("/proposals", writers, h.Propose)
	movements.Post("/proposals/confirm", writers, h.Confirm)
	movements.Post("/proposals/cancel", writers, h.Cancel)
	movements.Get("/", readers, h.History)

	// Stock
	stock := api.Group("/stock")
	stock.Get("/", readers, h.Summary)
	stock.Get("/balance", readers, h.Balance)
	stock.Get("/reconcile", RequireRole(RoleAdmin, RoleSupervisor), h.Reconcile)

	api.Get("/kardex", readers, h.Kardex)

	// Importador de stock inicial
	api.Post("/imports/adjustments", RequireRole(RoleAdmin), h.SeedAdjustments)
}
