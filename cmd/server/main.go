package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leasesign/internal/config"
	"leasesign/internal/database"
	"leasesign/internal/handlers"
	"leasesign/internal/render"
	"leasesign/internal/repository"
	"leasesign/internal/service"
	"leasesign/internal/utils"
)

func main() {
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	invitationRepo := repository.NewInvitationRepository(db)
	contractRepo := repository.NewContractRepository(db)
	statusRepo := repository.NewSignatureStatusRepository(db)

	// External collaborators: constructed once here, passed in everywhere
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	renderClient := render.NewClient(cfg.PDFRenderURL, cfg.PDFRenderAPIKey)

	downloadTokens, err := utils.NewDownloadTokenIssuer(cfg.DownloadTokenSecret, cfg.DownloadTokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize download token issuer: %v", err)
	}

	// Initialize services
	assembler := service.NewAssembler(cfg.TemplatePath, cfg.StylePath)
	distributionService := service.NewDistributionService(
		contractRepo, invitationRepo, statusRepo,
		assembler, renderClient, emailService, downloadTokens,
		cfg.ArtifactsPath, cfg.AppBaseURL,
	)
	signatureService := service.NewSignatureService(
		invitationRepo, contractRepo, statusRepo,
		emailService, distributionService,
		cfg.AppBaseURL, cfg.InvitationTTL,
	)

	// Initialize handlers
	signatureHandler := handlers.NewSignatureHandler(signatureService)
	contractHandler := handlers.NewContractHandler(distributionService, downloadTokens)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signature/direct", signatureHandler.DirectSign)
	mux.HandleFunc("POST /api/signature/invite", signatureHandler.Invite)
	mux.HandleFunc("GET /api/signature/verify", signatureHandler.Verify)
	mux.HandleFunc("POST /api/signature/save", signatureHandler.Save)
	mux.HandleFunc("GET /api/signature/list", signatureHandler.List)
	mux.HandleFunc("GET /api/signature/export", signatureHandler.Export)

	mux.HandleFunc("POST /api/contract/distribute", contractHandler.Distribute)
	mux.HandleFunc("GET /api/contract/download", contractHandler.Download)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // distribution waits on render + email
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
