// Command admin_seed loads demo data: a merchant with one terminal and a
// payment method, a customer credit profile, and tokens to drive them.
package main

import (
	"context"
	"errors"
	"log"

	"tierpay/internal/config"
	"tierpay/internal/models"
	"tierpay/internal/repositories"
	"tierpay/internal/services/terminal"
	"tierpay/internal/utils"

	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()

	merchantID := uint(config.GetIntEnv("SEED_MERCHANT_ID", 1))
	customerID := uint(config.GetIntEnv("SEED_CUSTOMER_ID", 42))
	credential := config.GetEnv("SEED_TERMINAL_CREDENTIAL", "")
	if credential == "" {
		log.Fatal("SEED_TERMINAL_CREDENTIAL must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Failed to close PostgreSQL connection: %v", err)
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	ctx := context.Background()

	profiles := repositories.NewCreditProfileRepository(repositories.DB)
	if err := profiles.Upsert(ctx, &models.CreditProfile{
		CustomerID:          customerID,
		AccountCategory:     config.GetEnv("SEED_CUSTOMER_CATEGORY", "individual"),
		Level:               config.GetIntEnv("SEED_CUSTOMER_LEVEL", 1),
		OutstandingFinanced: decimal.Zero,
	}); err != nil {
		log.Fatalf("Failed to seed credit profile: %v", err)
	}

	methods := repositories.NewPaymentMethodRepository(repositories.DB, repositories.CacheService)
	existing, err := methods.ListByMerchant(ctx, merchantID)
	if err != nil {
		log.Fatalf("Failed to read payment methods: %v", err)
	}
	if len(existing) == 0 {
		if err := methods.Create(ctx, &models.PaymentMethod{
			MerchantID:    merchantID,
			Channel:       "bank_transfer",
			BankName:      "Demo Bank",
			AccountName:   "Demo Merchant",
			AccountNumber: "000123456789",
			IsDefault:     true,
		}); err != nil {
			log.Fatalf("Failed to seed payment method: %v", err)
		}
	}

	registry := terminal.NewService(
		repositories.DB,
		repositories.NewTerminalRepository(repositories.DB),
		repositories.NewBindingRepository(repositories.DB),
		repositories.CacheService,
		terminal.Config{Limit: config.GetIntEnv("TERMINAL_LIMIT_PER_MERCHANT", terminal.DefaultTerminalLimit)},
	)
	term, err := registry.Create(ctx, merchantID, "front-desk", credential)
	switch {
	case errors.Is(err, terminal.ErrTerminalNameTaken):
		log.Println("terminal front-desk already exists")
	case err != nil:
		log.Fatalf("Failed to seed terminal: %v", err)
	default:
		log.Printf("terminal %s created, scan code %s", term.ID, term.ScanCode)
	}

	for _, seed := range []struct {
		id   uint
		role string
	}{
		{merchantID, models.RoleMerchant},
		{customerID, models.RoleCustomer},
	} {
		access, _, err := utils.GenerateTokens(&models.UserClaims{
			UserID:      seed.id,
			Role:        seed.role,
			Permissions: models.GetDefaultPermissions(seed.role),
		})
		if err != nil {
			log.Fatalf("Failed to issue %s token: %v", seed.role, err)
		}
		log.Printf("%s %d token: %s", seed.role, seed.id, access)
	}

	log.Println("Seed data loaded")
}
