package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ChaitanyaJx/Trackflix/api"
	"github.com/ChaitanyaJx/Trackflix/config"
	"github.com/ChaitanyaJx/Trackflix/handlers"
	"github.com/ChaitanyaJx/Trackflix/services/library"
	"github.com/ChaitanyaJx/Trackflix/services/metadata"
	"github.com/ChaitanyaJx/Trackflix/services/tracker"
	"github.com/ChaitanyaJx/Trackflix/services/userstore"
	"github.com/ChaitanyaJx/Trackflix/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🎬 TrackFlix Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("TRACKFLIX_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.Metadata.APIKey == "" {
		log.Printf("warning: no metadata API key configured; searches will fail until %s is filled in", configPath)
	}
	if settings.Store.BinID == "" || settings.Store.MasterKey == "" {
		log.Printf("warning: document store not configured; user data will not persist until %s is filled in", configPath)
	}

	metadataService := metadata.NewService(
		settings.Metadata.APIKey,
		settings.Metadata.BaseURL,
		settings.Search.MaxResults,
		time.Duration(settings.Metadata.TimeoutSeconds)*time.Second,
		settings.Metadata.RequestsPerSecond,
	)
	metadataHandler := handlers.NewMetadataHandler(metadataService)

	storeClient := userstore.NewClient(
		settings.Store.BaseURL,
		settings.Store.BinID,
		settings.Store.MasterKey,
		time.Duration(settings.Store.TimeoutSeconds)*time.Second,
		settings.Store.CheckRevision,
	)
	usersHandler := handlers.NewUsersHandler(storeClient)

	trackerService := tracker.NewService(metadataService, storeClient, settings.Persistence.IsOptimistic())
	sessionsHandler := handlers.NewSessionsHandler(trackerService)

	libraryService, err := library.NewService(afero.NewOsFs(), settings.Library.Path)
	if err != nil {
		log.Fatalf("failed to initialise library: %v", err)
	}
	libraryHandler := handlers.NewLibraryHandler(libraryService)

	r := utils.NewRouter()
	api.Register(r, sessionsHandler, metadataHandler, usersHandler, libraryHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server running on http://%s/\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
