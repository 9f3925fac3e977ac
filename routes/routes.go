package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	commonmw "github.com/yashrajoria/grocery-backend/common/middleware"
	"github.com/yashrajoria/grocery-backend/controllers"
	"github.com/yashrajoria/grocery-backend/middleware"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
)

const serviceName = "grocery-api"

// Router holds everything SetupRouter wires together.
type Router struct {
	Logger      *zap.Logger
	Verifier    middleware.TokenVerifier
	Auth        *controllers.AuthController
	Items       *controllers.ItemController
	Cart        *controllers.CartController
	Orders      *controllers.OrderController
	RateLimiter *commonmw.RateLimiter
	Metrics     *awspkg.MetricsClient
	// HealthCheck pings the primary store; nil reports healthy.
	HealthCheck    func(ctx context.Context) error
	AllowedOrigins string
	RequestTimeout time.Duration
	ExposeErrors   bool
}

func SetupRouter(r Router) *gin.Engine {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(commonmw.RequestID())
	engine.Use(commonmw.RequestLogger(r.Logger))
	engine.Use(commonmw.SecurityHeaders())
	engine.Use(commonmw.CORS(r.AllowedOrigins))
	if r.RateLimiter != nil {
		engine.Use(r.RateLimiter.Middleware())
	}
	engine.Use(commonmw.MetricsMiddleware(r.Metrics, serviceName))
	if r.RequestTimeout > 0 {
		engine.Use(commonmw.Timeout(r.RequestTimeout))
	}
	engine.Use(apperrors.ErrorMiddleware(r.Logger, r.ExposeErrors))

	engine.GET("/health", healthHandler(r.HealthCheck))

	api := engine.Group("/api")
	auth := middleware.AuthMiddleware(r.Verifier)

	registerAuthRoutes(api, r.Auth, auth)
	registerItemRoutes(api, r.Items, auth)
	registerCartRoutes(api, r.Cart, auth)
	registerOrderRoutes(api, r.Orders, auth)

	return engine
}

func registerAuthRoutes(api *gin.RouterGroup, ctrl *controllers.AuthController, auth gin.HandlerFunc) {
	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", ctrl.Register)
	authRoutes.POST("/login", ctrl.Login)
	authRoutes.GET("/verify", auth, ctrl.Verify)
	authRoutes.GET("/sessions", auth, ctrl.Sessions)
	authRoutes.POST("/logout", auth, ctrl.Logout)
}

func registerItemRoutes(api *gin.RouterGroup, ctrl *controllers.ItemController, auth gin.HandlerFunc) {
	itemRoutes := api.Group("/items")
	itemRoutes.Use(auth)
	itemRoutes.GET("", ctrl.GetItems)
	itemRoutes.GET("/:id", ctrl.GetItem)
}

func registerCartRoutes(api *gin.RouterGroup, ctrl *controllers.CartController, auth gin.HandlerFunc) {
	cartRoutes := api.Group("/cart")
	cartRoutes.Use(auth)
	cartRoutes.GET("", ctrl.GetCart)
	cartRoutes.POST("/add", ctrl.AddItem)
	cartRoutes.PUT("/update/:itemId", ctrl.UpdateQuantity)
	cartRoutes.DELETE("/remove/:itemId", ctrl.RemoveItem)
	cartRoutes.POST("/save", ctrl.SaveCart)
}

func registerOrderRoutes(api *gin.RouterGroup, ctrl *controllers.OrderController, auth gin.HandlerFunc) {
	orderRoutes := api.Group("/orders")
	orderRoutes.Use(auth)
	orderRoutes.POST("/create", ctrl.CreateOrder)
	orderRoutes.GET("/history", ctrl.History)
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	}
}
