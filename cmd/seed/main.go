// Seed fills a development database with providers, services, locations
// and patients so blocks can be planned and bookings exercised end to end.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/curaflow/curaflow/config"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/pkg/database"
	"github.com/curaflow/curaflow/pkg/sequence"
)

const (
	providerCount = 25
	patientCount  = 500
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	if err := database.Migrate(db, zap.NewNop()); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := sequence.Seed(db); err != nil {
		log.Fatalf("seed sequences: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())
	ctx := context.Background()

	services, err := seedServices(ctx, db)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	locations, err := seedLocations(ctx, db)
	if err != nil {
		log.Fatalf("seed locations: %v", err)
	}
	if err := seedProviders(ctx, db, services); err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedPatients(ctx, db); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Printf("seed complete: %d services, %d locations, %d providers, %d patients",
		len(services), len(locations), providerCount, patientCount)
}

func seedServices(ctx context.Context, db *gorm.DB) ([]directory.MedicalService, error) {
	names := []string{
		"General Practice",
		"Cardiology",
		"Dermatology",
		"Orthopedics",
		"Pediatrics",
		"Neurology",
		"Psychiatry",
		"ENT",
	}

	services := make([]directory.MedicalService, 0, len(names))
	for _, name := range names {
		svc := directory.MedicalService{
			Name:     name,
			Slug:     strings.ReplaceAll(strings.ToLower(name), " ", "-"),
			IsActive: true,
		}
		if err := db.WithContext(ctx).Create(&svc).Error; err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func seedLocations(ctx context.Context, db *gorm.DB) ([]directory.Location, error) {
	locations := make([]directory.Location, 0, 3)
	for i := 0; i < 3; i++ {
		loc := directory.Location{
			Name:     gofakeit.City() + " Clinic",
			IsActive: true,
		}
		if err := db.WithContext(ctx).Create(&loc).Error; err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func seedProviders(ctx context.Context, db *gorm.DB, services []directory.MedicalService) error {
	log.Printf("seeding %d providers", providerCount)

	for i := 0; i < providerCount; i++ {
		svc := services[gofakeit.Number(0, len(services)-1)]
		p := directory.Provider{
			Name:          "Dr. " + gofakeit.Name(),
			About:         gofakeit.Sentence(12),
			LicenseNumber: fmt.Sprintf("LIC-%06d", gofakeit.Number(100000, 999999)),
			Specialty:     svc.Name,
			IsActive:      true,
		}
		if err := db.WithContext(ctx).Create(&p).Error; err != nil {
			return err
		}

		link := directory.ProviderService{ProviderID: p.ID, ServiceID: svc.ID}
		if err := db.WithContext(ctx).Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedPatients(ctx context.Context, db *gorm.DB) error {
	log.Printf("seeding %d patients", patientCount)

	seq := sequence.NewGenerator(db)
	for i := 0; i < patientCount; i++ {
		number, err := seq.Next(ctx, sequence.CodePatient)
		if err != nil {
			return err
		}
		p := directory.Patient{
			PatientNumber: number,
			FirstName:     gofakeit.FirstName(),
			LastName:      gofakeit.LastName(),
			Gender:        gofakeit.Gender(),
			IsActive:      true,
		}
		if err := db.WithContext(ctx).Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}
