package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"csatguardian/classifier"
	"csatguardian/config"
	"csatguardian/logger"
	"csatguardian/notification"
	"csatguardian/repository"
	"csatguardian/routes"
	"csatguardian/schema"
	"csatguardian/service"
	"csatguardian/worker"
)

func main() {
	log := logger.New()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, using environment variables")
	}

	cfg := config.LoadConfig()

	// Initialize database connection (UTC for consistent timestamps)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open database connection")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}
	log.Info("database connection established")

	schema.InitializeDatabase(db)

	// Initialize repositories
	caseRepo := repository.NewCaseRepository(db)
	sentimentRepo := repository.NewSentimentRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	stateRepo := repository.NewStateRepository(db)

	// Initialize collaborators
	sentimentClassifier := classifier.NewOpenAIClassifier(cfg.Classifier, log)
	sender := notification.NewWebhookSender()

	// Initialize services
	timelineService := service.NewTimelineService(
		caseRepo,
		sentimentRepo,
		sentimentClassifier,
		time.Duration(cfg.Monitor.ClassifyTimeoutSeconds)*time.Second,
		log,
	)
	trendService := service.NewTrendService(cfg.Monitor)
	complianceService := service.NewComplianceService(cfg.Monitor)
	decisionService := service.NewDecisionService(cfg.Monitor, log)
	monitorService := service.NewMonitorService(
		caseRepo,
		alertRepo,
		stateRepo,
		timelineService,
		trendService,
		complianceService,
		decisionService,
		sender,
		log,
	)

	monitorWorker := worker.NewMonitorWorker(
		monitorService,
		time.Duration(cfg.Monitor.WorkerIntervalSeconds)*time.Second,
		log,
	)
	monitorWorker.Start()

	router := routes.SetupRoutes(monitorService, monitorWorker, caseRepo, alertRepo)

	// CORS middleware
	corsHandler := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("server starting")
	if err := http.ListenAndServe(addr, corsHandler(router)); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
