package routes

import (
	"net/http"
	"time"

	"github.com/sactech816/integration-app-sub010/controllers/users"
	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers all participant-facing routes on the given subrouter.
// Every route runs behind the participant resolver so anonymous sessions are
// minted transparently.
func UsersRoutes(api *mux.Router, e *engine.Engine, c *users.Controller) {
	// IP limiter for anonymous traffic: 200 per IP per minute
	ipLimiter := middleware.NewIPRateLimiter(200, time.Minute)
	// Participant limiter: 120 read, 30 write (draw/events/claim) per minute
	participantLimiter := middleware.NewParticipantRateLimiter(120, 30, 60)

	resolve := middleware.ParticipantMiddleware(e.Identity)
	chain := func(h http.HandlerFunc) http.Handler {
		return ipLimiter.Middleware(resolve(participantLimiter.Middleware(h)))
	}

	// Campaign catalog and play
	api.Handle("/campaigns/{id:[0-9]+}", chain(c.GetCampaign)).Methods(http.MethodGet)
	api.Handle("/campaigns/{id:[0-9]+}/draw", chain(c.Draw)).Methods(http.MethodPost)
	api.Handle("/campaigns/{id:[0-9]+}/stamps", chain(c.GetStampProgress)).Methods(http.MethodGet)

	// Behavioral events
	api.Handle("/events", chain(c.PostEvent)).Methods(http.MethodPost)

	// Point ledger
	api.Handle("/points/balance", chain(c.GetBalance)).Methods(http.MethodGet)
	api.Handle("/points/history", chain(c.GetHistory)).Methods(http.MethodGet)
	api.Handle("/points/spend", chain(c.Spend)).Methods(http.MethodPost)

	// Missions
	api.Handle("/missions", chain(c.ListMissions)).Methods(http.MethodGet)
	api.Handle("/missions/{id:[0-9]+}/claim", chain(c.ClaimMission)).Methods(http.MethodPost)

	// Session merge requires a real account
	api.Handle("/session/merge", ipLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(c.MergeSession)))).Methods(http.MethodPost)
}
