package main

import (
	"log"
	"os"

	"medrag-be/internal/model"
	"medrag-be/pkg/database"
	"medrag-be/pkg/vectorindex"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect
	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Extensions
	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to enable pgcrypto: %v. Continuing...", err)
	}
	if err := database.EnableVector(db); err != nil {
		log.Printf("Warn: Failed to enable pgvector: %v. Continuing...", err)
	}

	// 4. Tables
	models := []interface{}{
		&model.Patient{},
		&model.DiagnosisSession{},
		&model.Feedback{},
		&vectorindex.CaseEmbedding{},
	}
	log.Printf("Step 2: Running AutoMigrate for %d Tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Views
	log.Println("Step 3: Creating Views...")

	postMigrationSQL := []string{
		`CREATE OR REPLACE VIEW diagnosis_feedback_summary AS
		 SELECT ds.id AS session_id, ds.patient_id, ds.status, ds.top_condition, ds.top_confidence,
		        f.rating, f.correct_diagnosis, f.created_at AS feedback_at
		 FROM diagnosis_sessions ds
		 JOIN diagnosis_feedback f ON f.session_id = ds.id
		 WHERE ds.deleted_at IS NULL;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
