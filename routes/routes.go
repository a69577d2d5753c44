package routes

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"csatguardian/handler"
	"csatguardian/middleware"
	"csatguardian/repository"
	"csatguardian/service"
	"csatguardian/worker"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	monitorService *service.MonitorService,
	monitorWorker *worker.MonitorWorker,
	caseRepo *repository.CaseRepository,
	alertRepo *repository.AlertRepository,
) *mux.Router {
	router := mux.NewRouter()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "guardian-secret-change-in-production"
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)

	authHandler := handler.NewAuthHandler(caseRepo, jwtSecret)
	caseHandler := handler.NewCaseHandler(monitorService, monitorWorker)
	alertHandler := handler.NewAlertHandler(alertRepo)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// POST /api/v1/engineers/login - Engineer login; returns JWT
	apiV1.HandleFunc("/engineers/login", authHandler.Login).Methods("POST")

	// Case monitoring routes (protected - require auth)
	cases := apiV1.PathPrefix("/cases").Subrouter()

	// POST /api/v1/cases/evaluate - Sweep all active cases now
	cases.Handle("/evaluate", authMiddleware.RequireAuth(http.HandlerFunc(caseHandler.Sweep))).Methods("POST")

	// POST /api/v1/cases/{id}/evaluate - Evaluate one case on demand
	cases.Handle("/{id}/evaluate", authMiddleware.RequireAuth(http.HandlerFunc(caseHandler.EvaluateCase))).Methods("POST")

	// GET /api/v1/cases/{id}/alerts - Active alerts for a case
	cases.Handle("/{id}/alerts", authMiddleware.RequireAuth(http.HandlerFunc(alertHandler.ListCaseAlerts))).Methods("GET")

	// POST /api/v1/alerts/{id}/acknowledge - Acknowledge an alert (recipient only)
	apiV1.Handle("/alerts/{id}/acknowledge", authMiddleware.RequireAuth(http.HandlerFunc(alertHandler.AcknowledgeAlert))).Methods("POST")

	// GET /api/v1/monitor/status - Background worker status
	apiV1.Handle("/monitor/status", authMiddleware.RequireAuth(http.HandlerFunc(caseHandler.MonitorStatus))).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
