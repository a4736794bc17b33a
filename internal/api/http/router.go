package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/firelater/itsm-service/internal/api/http/handlers"
	"github.com/firelater/itsm-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/transitions", cfg.Tickets.Transitions)
	tickets.Post("/:id/status", auth.RequireAgent(), cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/assign", auth.RequireAgent(), cfg.Tickets.Assign)
	tickets.Post("/:id/escalate", auth.RequireAgent(), cfg.Tickets.Escalate)
	tickets.Post("/:id/root-cause", auth.RequireAgent(), cfg.Tickets.SetRootCause)

	chains := api.Group("/approval-chains")
	chains.Post("", auth.RequireAdmin(), cfg.Approvals.CreateChain)
	chains.Get("/:id", cfg.Approvals.GetChain)
	chains.Get("/:id/next", cfg.Approvals.Resolve)
	chains.Post("/:id/actions", cfg.Approvals.RecordAction)
	chains.Post("/:id/delegate", cfg.Approvals.Delegate)
	chains.Post("/:id/steps/:stepId/evaluate", cfg.Approvals.EvaluateBranch)

	sla := api.Group("/sla")
	sla.Post("/policies", auth.RequireAdmin(), cfg.SLA.CreatePolicy)
	sla.Get("/policies", cfg.SLA.ListPolicies)
	sla.Get("/targets", cfg.SLA.PreviewTargets)
	sla.Post("/sweep", auth.RequireAgent(), cfg.SLA.SweepBreaches)
}
