package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/notify"
	"github.com/gnezdoapp/gnezdo/internal/observability"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, notifier *notify.Dispatcher) http.Handler {
	observability.RegisterMetrics()
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	petsHandler := &PetsHandler{DB: db}
	placementsHandler := &PlacementsHandler{DB: db, Notifier: notifier}
	transfersHandler := &TransfersHandler{DB: db, Notifier: notifier}
	handoversHandler := &HandoversHandler{DB: db, Notifier: notifier}
	fostersHandler := &FostersHandler{DB: db, Notifier: notifier}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login and metrics.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Pets. Ownership of the specific pet is checked in the store layer.
	mux.Handle("GET /api/pets", authMW(http.HandlerFunc(petsHandler.List)))
	mux.Handle("POST /api/pets", authMW(http.HandlerFunc(petsHandler.Create)))
	mux.Handle("GET /api/pets/{id}", authMW(http.HandlerFunc(petsHandler.Get)))
	mux.Handle("PUT /api/pets/{id}", authMW(http.HandlerFunc(petsHandler.Update)))
	mux.Handle("DELETE /api/pets/{id}", authMW(http.HandlerFunc(petsHandler.Delete)))
	mux.Handle("GET /api/pets/{id}/ownership", authMW(http.HandlerFunc(petsHandler.GetOwnership)))

	// Placement requests.
	mux.Handle("GET /api/placements", authMW(http.HandlerFunc(placementsHandler.List)))
	mux.Handle("POST /api/placements", authMW(http.HandlerFunc(placementsHandler.Create)))
	mux.Handle("GET /api/placements/{id}", authMW(http.HandlerFunc(placementsHandler.Get)))
	mux.Handle("DELETE /api/placements/{id}", authMW(http.HandlerFunc(placementsHandler.Cancel)))
	mux.Handle("POST /api/placements/{id}/respond", authMW(http.HandlerFunc(placementsHandler.Respond)))

	// Transfer requests.
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transfers/{id}/accept", authMW(http.HandlerFunc(transfersHandler.Accept)))
	mux.Handle("POST /api/transfers/{id}/reject", authMW(http.HandlerFunc(transfersHandler.Reject)))
	mux.Handle("POST /api/transfers/{id}/cancel", authMW(http.HandlerFunc(transfersHandler.Cancel)))
	mux.Handle("PUT /api/transfers/{id}/handover", authMW(http.HandlerFunc(handoversHandler.Schedule)))

	// Handovers.
	mux.Handle("GET /api/handovers/{id}", authMW(http.HandlerFunc(handoversHandler.Get)))
	mux.Handle("POST /api/handovers/{id}/confirm", authMW(http.HandlerFunc(handoversHandler.Confirm)))
	mux.Handle("POST /api/handovers/{id}/complete", authMW(http.HandlerFunc(handoversHandler.Complete)))
	mux.Handle("POST /api/handovers/{id}/cancel", authMW(http.HandlerFunc(handoversHandler.Cancel)))
	mux.Handle("POST /api/handovers/{id}/dispute", authMW(http.HandlerFunc(handoversHandler.Dispute)))
	mux.Handle("GET /api/handovers/{id}/disputes", authMW(requireAdmin(http.HandlerFunc(handoversHandler.ListDisputes))))

	// Foster assignments.
	mux.Handle("GET /api/fosters", authMW(http.HandlerFunc(fostersHandler.List)))
	mux.Handle("GET /api/fosters/{id}", authMW(http.HandlerFunc(fostersHandler.Get)))
	mux.Handle("POST /api/fosters/{id}/complete", authMW(http.HandlerFunc(fostersHandler.Complete)))
	mux.Handle("POST /api/fosters/{id}/cancel", authMW(http.HandlerFunc(fostersHandler.Cancel)))

	return LoggingMiddleware(mux)
}
