package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"family-reward-system/handlers"
	"family-reward-system/middleware"
	"family-reward-system/models"
	"family-reward-system/services"
	"family-reward-system/utils"
	"family-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, photo uploads are capped well below this
	})

	// GLOBAL: only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Challenge{},
		&models.ChallengeAssignment{},
		&models.CompletedChallenge{},
		&models.CoinBalance{},
		&models.CoinTransaction{},
		&models.Reward{},
		&models.RewardTransaction{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	mailer := utils.NewSMTPMailer()

	ledgerService := services.NewCoinLedgerService(db)
	groupService := services.NewGroupService(db, mailer)
	challengeService := services.NewChallengeService(db, ledgerService, groupService)
	rewardService := services.NewRewardService(db, ledgerService, groupService)
	userService := services.NewUserService(db, mailer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminder := workers.NewValidationReminder(db, mailer, 24*time.Hour)
	go reminder.Run(ctx, time.Hour)

	challengeService.StartExpirySweeper()

	handlers.SetupUserRoutes(app, userService)
	handlers.SetupGroupRoutes(app, groupService)
	handlers.SetupChallengeRoutes(app, challengeService)
	handlers.SetupCoinRoutes(app, ledgerService)
	handlers.SetupRewardRoutes(app, rewardService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Println("Challenge expiry sweeper running (every 1m)")
	log.Println("Validation reminder worker running (every 1h)")
	log.Println("GatewayAuthMiddleware enforced globally")
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
