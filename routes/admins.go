package routes

import (
	"net/http"
	"time"

	"github.com/sactech816/integration-app-sub010/controllers/admins"
	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/middleware"

	"github.com/gorilla/mux"
)

// SetAdminRoutes registers the backoffice routes on the given subrouter.
func SetAdminRoutes(api *mux.Router, e *engine.Engine) {
	// Login limiter: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)

	adminController := admins.NewController(e)

	admin := api.PathPrefix("/admin").Subrouter()

	admin.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)

	protected := admin.NewRoute().Subrouter()
	protected.Use(middleware.AdminAuthMiddleware)

	protected.Handle("/campaigns", http.HandlerFunc(adminController.CreateCampaign)).Methods(http.MethodPost)
	protected.Handle("/campaigns/{id:[0-9]+}/end", http.HandlerFunc(adminController.EndCampaign)).Methods(http.MethodPost)
	protected.Handle("/campaigns/{id:[0-9]+}/stats", http.HandlerFunc(adminController.CampaignStats)).Methods(http.MethodGet)

	protected.Handle("/prizes/{id:[0-9]+}/topup", http.HandlerFunc(adminController.TopUpPrize)).Methods(http.MethodPost)
	protected.Handle("/prizes/{id:[0-9]+}/refund", http.HandlerFunc(adminController.RefundPrize)).Methods(http.MethodPost)

	protected.Handle("/missions", http.HandlerFunc(adminController.CreateMission)).Methods(http.MethodPost)
	protected.Handle("/missions", http.HandlerFunc(adminController.ListMissions)).Methods(http.MethodGet)
	protected.Handle("/missions/{id:[0-9]+}/status", http.HandlerFunc(adminController.SetMissionStatus)).Methods(http.MethodPut)

	protected.Handle("/reconcile/balances", http.HandlerFunc(adminController.ReconcileBalances)).Methods(http.MethodPost)
	protected.Handle("/points/adjust", http.HandlerFunc(adminController.AdjustPoints)).Methods(http.MethodPost)
}
