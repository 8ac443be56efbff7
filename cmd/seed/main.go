// Seeding tool for a first IT admin, sample divisions, and approver grants.
// Usage (env overrides):
//
//	SEED_ADMIN_EMAIL=admin@example.com SEED_ADMIN_PASSWORD=ChangeMe123
//
// Reads DATABASE_URL and other core config via kycportal/pkg/config
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"kycportal/internal/auth"
	"kycportal/internal/division"
	"kycportal/internal/domain"
	"kycportal/internal/repository/postgres"
	"kycportal/pkg/config"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("seed")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	divisionRepo := postgres.NewDivisionRepository(db)
	divisionService := division.NewService(divisionRepo, userRepo, log)
	ctx := context.Background()

	adminEmail := getenv("SEED_ADMIN_EMAIL", "admin@example.com")
	adminPassword := getenv("SEED_ADMIN_PASSWORD", "ChangeMe123")
	adminID := ensureUser(ctx, userRepo, log, adminEmail, adminPassword, "IT Admin", domain.RoleITAdmin)

	managerEmail := getenv("SEED_MANAGER_EMAIL", "manager@example.com")
	managerPassword := getenv("SEED_MANAGER_PASSWORD", "ChangeMe123")
	managerID := ensureUser(ctx, userRepo, log, managerEmail, managerPassword, "Division Manager", domain.RoleManager)

	salesID := ensureDivision(ctx, divisionService, log, "SALES", "Sales Division")
	ensureDivision(ctx, divisionService, log, "PROC", "Procurement Division")

	if _, err := divisionService.Grant(ctx, division.GrantInput{
		UserID:        managerID,
		DivisionID:    salesID,
		ApprovalLevel: 1,
	}); err != nil {
		log.Fatal("Failed to issue grant", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Seed complete", map[string]interface{}{
		"admin_id":   adminID,
		"manager_id": managerID,
	})
	fmt.Println("OK: users, divisions, and grants seeded")
}

func ensureUser(ctx context.Context, repo *postgres.UserRepository, log logger.Logger, email, password, name string, role domain.Role) uuid.UUID {
	if existing, err := repo.GetByEmail(ctx, email); err == nil {
		log.Info("User already exists", map[string]interface{}{"email": email})
		return existing.ID
	} else if !errors.IsKind(err, errors.KindNotFound) {
		log.Fatal("Failed to look up user", map[string]interface{}{"error": err.Error()})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal("Failed to hash password", map[string]interface{}{"error": err.Error()})
	}

	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := repo.Create(ctx, u); err != nil {
		log.Fatal("Failed to create user", map[string]interface{}{"error": err.Error()})
	}

	log.Info("User created", map[string]interface{}{"email": email, "role": role})
	return u.ID
}

func ensureDivision(ctx context.Context, svc *division.Service, log logger.Logger, code, name string) uuid.UUID {
	divisions, err := svc.List(ctx, false)
	if err != nil {
		log.Fatal("Failed to list divisions", map[string]interface{}{"error": err.Error()})
	}
	for _, d := range divisions {
		if d.Code == code {
			log.Info("Division already exists", map[string]interface{}{"code": code})
			return d.ID
		}
	}

	d, err := svc.Create(ctx, division.DivisionInput{Code: code, Name: name})
	if err != nil {
		log.Fatal("Failed to create division", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Division created", map[string]interface{}{"code": code})
	return d.ID
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
