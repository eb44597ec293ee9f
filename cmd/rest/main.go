package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medrag-be/internal/bootstrap"
	"medrag-be/internal/config"
	"medrag-be/internal/server"
	"medrag-be/internal/service"
	"medrag-be/internal/tracer"
	"medrag-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, cfg.App.OtelEndpoint, service.ServiceVersion)
	defer shutdownTracer(context.Background())

	// 3. Database (optional)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Background workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Orchestrator.Run(ctx); err != nil {
		log.Fatalf("[FATAL] Failed to start diagnosis workers: %v", err)
	}
	go container.WebSocketHub.Run(ctx)
	if err := container.AuditLog.Start(ctx); err != nil {
		log.Printf("[WARN] Audit subscriber not started: %v", err)
	}

	// 6. Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	container.Close()
}
