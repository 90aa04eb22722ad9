package api

import (
	"fmt"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/turnstile/internal/api/handler"
	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/api/validation"
	"github.com/daap14/turnstile/internal/auth"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Version     string
	OpenAPISpec []byte
	CORSOrigins []string

	Authenticator middleware.Authenticator
	Issuer        handler.TicketIssuer
	Scanner       handler.TicketScanner
	Tickets       handler.TicketLister
	Stats         handler.StatsProvider
	Events        handler.EventTeamStore
	EventGate     handler.EventManagerGate
	Teams         handler.TeamService
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	if len(deps.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.CORSOrigins))
	}

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler, err := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		if err != nil {
			return nil, fmt.Errorf("building OpenAPI handler: %w", err)
		}
		r.Get("/openapi.json", openapiHandler.ServeJSON)
		r.Get("/openapi.yaml", openapiHandler.ServeYAML)
	}

	v := validation.New()
	ticketHandler := handler.NewTicketHandler(deps.Issuer, deps.Scanner, deps.Tickets, v)
	statsHandler := handler.NewStatsHandler(deps.Stats)
	eventTeamHandler := handler.NewEventTeamHandler(deps.Events, deps.EventGate, v)
	teamHandler := handler.NewTeamHandler(deps.Teams, v)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Authenticator))

		r.Route("/events/{id}", func(r chi.Router) {
			r.Post("/tickets", ticketHandler.Purchase)
			r.Get("/stats", statsHandler.ServeHTTP)
			r.Get("/teams", eventTeamHandler.List)
			r.Put("/teams", eventTeamHandler.Replace)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/mine", ticketHandler.Mine)
			r.Get("/{id}", ticketHandler.Detail)
			r.Post("/scan", ticketHandler.Scan)
			r.Post("/scan/{code}", ticketHandler.ScanPath)
			r.Post("/{id}/reactivate", ticketHandler.Reactivate)
		})

		r.Route("/teams", func(r chi.Router) {
			r.With(middleware.RequireRole(auth.RolePromoter, auth.RoleOwner, auth.RoleAdmin)).Post("/", teamHandler.Create)
			r.Get("/managed", teamHandler.Managed)
			r.Get("/mine", teamHandler.Mine)
			r.Get("/{id}", teamHandler.GetByID)
			r.Post("/{id}/invitations", teamHandler.Invite)
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", teamHandler.Invitations)
			r.Post("/{id}/respond", teamHandler.Respond)
		})
	})

	return r, nil
}
