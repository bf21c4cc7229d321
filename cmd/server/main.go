package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenTramite/tramite/internal/auth"
	"github.com/OpenTramite/tramite/internal/config"
	"github.com/OpenTramite/tramite/internal/database"
	"github.com/OpenTramite/tramite/internal/middleware"
	"github.com/OpenTramite/tramite/internal/process/model"
	"github.com/OpenTramite/tramite/internal/process/repository"
	"github.com/OpenTramite/tramite/internal/process/router"
	"github.com/OpenTramite/tramite/internal/process/service"
	"github.com/OpenTramite/tramite/internal/uploads"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"alloc_max_attempts", cfg.Engine.AllocMaxAttempts,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Perform health check
	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// Apply schema migrations
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database schema: %v", err)
	}

	// Initialize document storage
	storage, err := uploads.NewStorageFromConfig(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize document storage: %v", err)
	}
	uploader := uploads.NewUploadService(storage)

	// Repositories
	templateRepo := repository.NewTemplateRepo(db)
	processRepo := repository.NewProcessRepo(db)
	executionRepo := repository.NewExecutionRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	userRepo := repository.NewUserRepo(db)

	// Engine services
	allocator := service.NewNumberAllocator(processRepo, templateRepo).
		WithMaxAttempts(cfg.Engine.AllocMaxAttempts)
	graph := service.NewStepGraph(templateRepo)
	authz := service.NewAuthorizer(executionRepo)
	audit := service.NewAuditWriter(auditRepo)

	templateService := service.NewTemplateService(db, templateRepo, userRepo, allocator, graph, authz)
	processService := service.NewProcessService(db, processRepo, templateRepo, executionRepo, allocator, graph, authz, audit)
	documentService := service.NewDocumentService(db, documentRepo, executionRepo, processRepo, templateRepo, authz, audit, uploader)

	// Routers
	tr := router.NewTemplateRouter(templateService)
	pr := router.NewProcessRouter(processService)
	dr := router.NewDocumentRouter(documentService)

	// Set up HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/templates", tr.HandleCreateTemplate)
	mux.HandleFunc("GET /api/templates", tr.HandleListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", tr.HandleGetTemplate)
	mux.HandleFunc("POST /api/templates/{id}/steps", tr.HandleAddStep)
	mux.HandleFunc("POST /api/templates/{id}/validate", tr.HandleValidateTemplate)
	mux.HandleFunc("POST /api/templates/{id}/deactivate", tr.HandleDeactivateTemplate)
	mux.HandleFunc("POST /api/transitions", tr.HandleAddTransition)
	mux.HandleFunc("POST /api/processes", pr.HandleCreateProcess)
	mux.HandleFunc("GET /api/processes", pr.HandleListProcesses)
	mux.HandleFunc("GET /api/processes/{id}", pr.HandleGetProcess)
	mux.HandleFunc("POST /api/processes/{id}/start", pr.HandleStartProcess)
	mux.HandleFunc("POST /api/processes/{id}/execute", pr.HandleExecuteStep)
	mux.HandleFunc("POST /api/processes/{id}/forward", pr.HandleForwardProcess)
	mux.HandleFunc("POST /api/processes/{id}/cancel", pr.HandleCancelProcess)
	mux.HandleFunc("GET /api/dashboard", pr.HandleDashboard)
	mux.HandleFunc("POST /api/executions/{id}/documents", dr.HandleAttachDocument)
	mux.HandleFunc("GET /api/executions/{id}/documents", dr.HandleListDocuments)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with auth and CORS middleware
	handler := middleware.CORS(&cfg.CORS)(auth.Middleware(userRepo)(mux))

	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown of HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("server stopped")
}
