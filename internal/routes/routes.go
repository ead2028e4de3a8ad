package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/config"
	"github.com/example/retailpulse/internal/handlers"
	"github.com/example/retailpulse/internal/middleware"
	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/services"
)

// Services groups the domain services the HTTP layer talks to.
type Services struct {
	Auth     *services.AuthService
	Otp      *services.OtpService
	Carts    *services.CartService
	Orders   *services.OrderService
	Products *services.ProductService
	Comments *services.CommentService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, svc Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Otp)
	userHandler := handlers.NewUserHandler(svc.Auth, svc.Otp)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	paymentHandler := handlers.NewPaymentHandler(svc.Orders)
	productHandler := handlers.NewProductHandler(svc.Products)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	adminHandler := handlers.NewAdminHandler(svc.Orders)

	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret, svc.Auth)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	app.Get("/health", handlers.Health)
	app.Static("/images", cfg.UploadDir)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/confirm-email", authHandler.ConfirmEmail)
	auth.Post("/confirm-phone", authHandler.ConfirmPhone)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Post("/change-password", requireAuth, authHandler.ChangePassword)

	user := api.Group("/user")
	user.Post("/resend-otp", userHandler.ResendOtp)
	user.Get("/profile", requireAuth, userHandler.Profile)

	// Products
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", requireAuth, requireAdmin, productHandler.CreateProduct)
	products.Put("/:id", requireAuth, requireAdmin, productHandler.UpdateProduct)
	products.Delete("/:id", requireAuth, requireAdmin, productHandler.DeleteProduct)

	comments := api.Group("/comments")
	comments.Get("/product/:id", commentHandler.ListComments)
	comments.Post("/product/:id", requireAuth, commentHandler.AddComment)

	// Gateway webhook
	api.Post("/verify-payment", middleware.WebhookSignatureMiddleware(cfg.RazorpayWebhookSecret), paymentHandler.Webhook)

	// Protected routes
	cart := api.Group("/cart", requireAuth)
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/", cartHandler.AddToCart)
	cart.Post("/add", cartHandler.AddToCart)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Delete("/items/:productId", cartHandler.RemoveItem)

	orders := api.Group("/orders", requireAuth)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", requireAdmin, orderHandler.ListOrders)
	orders.Get("/user", orderHandler.ListUserOrders)
	orders.Post("/verify-payment", orderHandler.VerifyPayment)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Put("/:id/status", requireAdmin, orderHandler.UpdateOrderStatus)

	admin := api.Group("/admin", requireAuth, requireAdmin)
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
}
