package main

import (
	"log"
	"os"

	"loyaltypoints-backend/config"
	"loyaltypoints-backend/internal/api"
	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"
	"loyaltypoints-backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	err = logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	router, err := api.NewRouter()
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	// Migrate the schema
	err = database.DB.AutoMigrate(
		&models.User{},
		&models.PasswordResetToken{},
		&models.Transaction{},
		&models.Promotion{},
		&models.UserPromotion{},
		&models.Event{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	initSuperuser()

	if err := router.Run(":8080"); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

// initSuperuser makes sure there is always one account that can grant
// clearances. Credentials come from the environment so deployments never
// ship a default password.
func initSuperuser() {
	utorid := envOr("SUPERUSER_UTORID", "clive123")
	email := envOr("SUPERUSER_EMAIL", "clive@mail.utoronto.ca")
	password := envOr("SUPERUSER_PASSWORD", "SuperUser123!")

	var superuser models.User
	result := database.DB.Where("utorid = ?", utorid).First(&superuser)

	if result.Error != nil {
		if result.Error.Error() == "record not found" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("failed to hash superuser password: %v", err)
			}

			superuser = models.User{
				Utorid:   utorid,
				Name:     "Superuser",
				Email:    email,
				Password: string(hashedPassword),
				Role:     models.RoleSuperuser,
				Verified: true,
			}

			if err := database.DB.Create(&superuser).Error; err != nil {
				log.Fatalf("failed to create superuser: %v", err)
			}
			log.Println("Superuser created successfully!")
		} else {
			log.Fatalf("failed to check for superuser: %v", result.Error)
		}
	} else {
		log.Println("Superuser already exists.")
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
