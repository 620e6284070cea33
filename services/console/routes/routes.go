package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/advanced-supermart/console-backend/services/common/auth"
	"github.com/advanced-supermart/console-backend/services/console/controllers"
	"github.com/advanced-supermart/console-backend/services/console/middleware"
	"github.com/advanced-supermart/console-backend/services/console/models"
)

type Controllers struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cashier  *controllers.CashierController
	Settings *controllers.SettingsController
}

// RegisterRoutes wires every console endpoint. Catalog routes are admin only,
// cashier routes accept Cashier or admin.
func RegisterRoutes(r *gin.Engine, tokens *auth.TokenManager, c Controllers) {
	authn := middleware.AuthMiddleware(tokens)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signin", c.Auth.SignIn)
		authRoutes.POST("/signout", c.Auth.SignOut)
		authRoutes.GET("/me", authn, c.Auth.Me)
	}

	productRoutes := r.Group("/products", authn, middleware.RequireRole(models.RoleAdmin))
	{
		productRoutes.GET("", c.Products.GetProducts)
		productRoutes.GET("/:id", c.Products.GetProduct)
		productRoutes.POST("", c.Products.CreateProduct)
		productRoutes.PUT("/:id", c.Products.UpdateProduct)
		productRoutes.DELETE("/:id", c.Products.DeleteProduct)
		productRoutes.POST("/images", c.Products.UploadImage)
		productRoutes.GET("/images/presign", c.Products.PresignUpload)
	}

	cashierRoutes := r.Group("/cashier", authn, middleware.RequireRole(models.RoleCashier, models.RoleAdmin), middleware.TerminalID())
	{
		cashierRoutes.GET("/session", c.Cashier.GetSession)
		cashierRoutes.POST("/lookup", c.Cashier.Lookup)
		cashierRoutes.POST("/scan", c.Cashier.Scan)
		cashierRoutes.POST("/submit", c.Cashier.Submit)
		cashierRoutes.POST("/reset", c.Cashier.Reset)
	}

	settingsRoutes := r.Group("/settings", authn)
	{
		settingsRoutes.GET("/profile", c.Settings.GetProfile)
		settingsRoutes.PUT("/profile", c.Settings.UpdateProfile)
	}
}
