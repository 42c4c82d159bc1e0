package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a new API router
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler:    handler,
		middleware: NewMiddleware(),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/params", r.handler.GetParams)

		// Authorization gate
		router.Get("/operational", r.handler.GetOperational)
		router.Post("/operational", r.handler.SetOperational)
		router.Get("/callers/{address}", r.handler.GetCaller)
		router.Post("/callers/{address}", r.handler.AuthorizeCaller)

		// Airlines
		router.Get("/airlines/count", r.handler.GetAirlinesCount)
		router.Get("/airlines/{address}", r.handler.GetAirline)
		router.Post("/airlines", r.handler.RegisterAirline)
		router.Post("/airlines/{address}/votes", r.handler.VoteAirline)
		router.Post("/airlines/fund", r.handler.FundAirline)

		// Flights
		router.Post("/flights", r.handler.RegisterFlight)
		router.Get("/flights/{code}/status", r.handler.GetFlightStatus)
		router.Get("/airlines/{address}/flights/{code}/{timestamp}", r.handler.GetFlight)
		router.Post("/flights/status-requests", r.handler.FetchFlightStatus)
		router.Get("/flights/status-requests", r.handler.GetStatusRequest)

		// Oracles
		router.Post("/oracles", r.handler.RegisterOracle)
		router.Get("/oracles/indexes", r.handler.GetOracleIndexes)
		router.Post("/oracles/responses", r.handler.SubmitOracleResponse)

		// Insurance
		router.Post("/insurance", r.handler.BuyInsurance)
		router.Get("/insurance/credit", r.handler.GetPayableCredit)
		router.Post("/insurance/pay", r.handler.PayInsuree)
		router.Get("/passengers/{address}", r.handler.GetPassenger)
		router.Get("/wallets/{address}", r.handler.GetWallet)

		// Journal
		router.Get("/events", r.handler.GetEvents)
	})

	return router
}
