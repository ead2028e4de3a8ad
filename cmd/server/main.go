package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/retailpulse/internal/config"
	"github.com/example/retailpulse/internal/database"
	"github.com/example/retailpulse/internal/handlers"
	"github.com/example/retailpulse/internal/repository"
	"github.com/example/retailpulse/internal/routes"
	"github.com/example/retailpulse/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	store := repository.NewGormStore(db)

	email := services.NewSMTPService(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	sms := services.NewPlumService(services.PlumConfig{
		BaseURL:  cfg.PlumBaseURL,
		SMSPath:  cfg.PlumSMSPath,
		Username: cfg.PlumUsername,
		Password: cfg.PlumPassword,
		Enabled:  cfg.PlumEnabled,
	}, nil)
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	gateway := services.NewRazorpayService(services.RazorpayConfig{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Currency:  cfg.PaymentCurrency,
	}, nil)

	otp := services.NewOtpService(store, email, sms)
	auth := services.NewAuthService(store, otp, cfg.JWTSecret, cfg.TokenExpires)
	svc := routes.Services{
		Auth:     auth,
		Otp:      otp,
		Carts:    services.NewCartService(store),
		Orders:   services.NewOrderService(store, gateway, email, telegram, cfg.PaymentCurrency),
		Products: services.NewProductService(store, services.NewDiskImageStore(cfg.UploadDir)),
		Comments: services.NewCommentService(store),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPhone, cfg.AdminPassword); err != nil {
		log.Printf("admin bootstrap failed: %v", err)
	}

	go services.NewCleanupService(store, cfg.CleanupInterval).Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "RetailPulse Backend",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.Register(app, cfg, svc)

	go func() {
		log.Printf("Starting server on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
