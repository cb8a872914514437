package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Conversations  *handlers.ConversationsHandler
	Agents         *handlers.AgentsHandler
	Rules          *handlers.RulesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Conversation intake and lookup are
// public so the chat widget can reach them; everything else requires an
// authenticated agent.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/conversations", cfg.Conversations.CreateConversation)
	app.Get("/conversations/:key", cfg.Conversations.GetConversation)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.ChangePassword)

	console := app.Group("/console", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	console.Get("/conversations", cfg.Conversations.ListConversations)
	console.Post("/conversations/:id/assign", cfg.Conversations.ManualAssign)
	console.Post("/conversations/:id/assign/auto", cfg.Conversations.AutoAssign)
	console.Get("/conversations/:id/history", cfg.Conversations.ListHistory)
	console.Get("/agents/roster", cfg.Agents.Roster)

	admin := console.Group("", auth.RequireAgentRole(domain.AgentRoleAdmin))
	admin.Post("/agents", cfg.Agents.CreateAgent)
	admin.Get("/agents", cfg.Agents.ListAgents)
	admin.Put("/agents/:id", cfg.Agents.UpdateAgent)
	admin.Post("/agents/:id/active", cfg.Agents.SetActive)
	admin.Post("/rules", cfg.Rules.CreateRule)
	admin.Get("/rules", cfg.Rules.ListRules)
	admin.Put("/rules/:id", cfg.Rules.UpdateRule)
	admin.Delete("/rules/:id", cfg.Rules.DeleteRule)
}
