package main

import (
	"alcyxob/coach-app/internal/aigen"
	"alcyxob/coach-app/internal/api"
	"alcyxob/coach-app/internal/config"
	"alcyxob/coach-app/internal/dnd"
	"alcyxob/coach-app/internal/editor"
	"alcyxob/coach-app/internal/persistence"
	"alcyxob/coach-app/internal/repository/mongo"
	"alcyxob/coach-app/internal/service"
	"alcyxob/coach-app/internal/snapshot"
	"alcyxob/coach-app/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

const idleSweepInterval = time.Minute

// @title Coach Mesocycle API
// @version 1.0
// @description API for coaches: clients, exercise catalog, mesocycles and the drag-and-drop program editor.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Coach App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatalf("FATAL: jwt.secret is not set")
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB)
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	fileStorage, err := storage.NewS3Storage(initCtx, cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}
	snapshots, err := snapshot.Open(initCtx, cfg.Snapshot.Path)
	cancelInit()
	if err != nil {
		log.Fatalf("FATAL: Failed to open questionnaire snapshots: %v", err)
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			log.Printf("ERROR: Failed to close snapshot store: %v", err)
		}
	}()

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	mesoRepo := mongo.NewMongoMesocycleRepository(appDB)
	dayRepo := mongo.NewMongoTrainingDayRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	exerciseService := service.NewExerciseService(exerciseRepo, fileStorage)
	programService := service.NewProgramService(userRepo, exerciseRepo, mesoRepo, dayRepo)

	var remote *persistence.HTTPAdapter
	if cfg.Backend.BaseURL != "" {
		log.Printf("INFO: Editor commits go to %s", cfg.Backend.BaseURL)
		remote = persistence.NewHTTPAdapter(cfg.Backend.BaseURL, "", cfg.Backend.Timeout)
	}
	editorService := service.NewEditorService(
		programService,
		persistence.NewRepositoryAdapter(dayRepo),
		remote,
		editor.Config{
			CommitTimeout: cfg.Editor.CommitTimeout,
			Activation: dnd.Activation{
				Distance:  cfg.Editor.DragDistance,
				Delay:     cfg.Editor.TouchDelay,
				Tolerance: cfg.Editor.TouchTolerance,
			},
			Strict: cfg.Editor.StrictInvariants,
		},
		cfg.Editor.IdleTimeout,
	)

	generator := aigen.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, aigen.Options{
		Timeout: cfg.AI.Timeout,
		Rate:    cfg.AI.RateLimit,
		Burst:   cfg.AI.Burst,
	})
	// Handlers write training days through the open editors; the editors read the plain service.
	editingPrograms := service.NewEditingProgramService(programService, editorService)
	questionnaireService := service.NewQuestionnaireService(editingPrograms, generator, snapshots)

	// --- Initialize Gin Engine ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, authService, exerciseService, editingPrograms, editorService, questionnaireService, cfg.Server.WSOrigins)

	// --- Start HTTP Server ---
	// No read/write timeouts: board streams are long-lived websocket connections.
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Shutdown does not touch hijacked websocket connections; closing the editors ends board
	// streams and refuses further drops.
	server.RegisterOnShutdown(editorService.Close)

	log.Printf("Server starting on %s", cfg.Server.Address)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// --- Idle Editor Sessions ---
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(idleSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				editorService.CloseIdle(now)
			case <-sweepDone:
				return
			}
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	close(sweepDone)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}
	// Pending commits finish before the database goes away.
	if err := editorService.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Editor sessions did not drain: %v", err)
	}

	log.Println("Server exiting.")
}
