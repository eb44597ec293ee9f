package main

import (
	"context"
	"log"
	"os"
	"time"

	"medrag-be/internal/entity"
	"medrag-be/internal/repository/specification"
	"medrag-be/internal/repository/unitofwork"
	"medrag-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding demo patients...")

	dob := func(s string) *time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return &t
	}

	patients := []entity.Patient{
		{Name: "Demo Patient A", DateOfBirth: dob("1958-03-14"), Diagnosis: "Type 2 diabetes", Medications: []string{"metformin 500mg", "atorvastatin 20mg"}},
		{Name: "Demo Patient B", DateOfBirth: dob("1990-11-02"), Diagnosis: "Asthma", Medications: []string{"salbutamol inhaler"}},
		{Name: "Demo Patient C", DateOfBirth: dob("1975-07-21"), Diagnosis: "Hypertension", Medications: []string{"amlodipine 5mg"}},
	}

	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).PatientRepository()

	for _, p := range patients {
		existing, err := repo.FindOne(ctx, specification.NameContains{Query: p.Name})
		if err != nil {
			log.Fatalf("Error: lookup %s: %v", p.Name, err)
		}
		if existing != nil {
			log.Printf("Patient '%s' already exists, skipping...", p.Name)
			continue
		}

		p.Id = uuid.New()
		if err := repo.Create(ctx, &p); err != nil {
			log.Printf("Error: Failed to create patient '%s': %v", p.Name, err)
			continue
		}
		log.Printf("Created patient '%s' (%s)", p.Name, p.Id)
	}

	log.Println("✅ Seeding completed.")
}
