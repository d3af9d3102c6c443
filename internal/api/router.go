package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/api/handler"
	"github.com/amit9129/automated-parking-system/internal/api/middleware"
	"github.com/amit9129/automated-parking-system/internal/domain"
)

// Services groups what the HTTP layer calls into.
type Services struct {
	Auth    handler.Authenticator
	Parking handler.ParkingLifecycle
	// LPR is optional; the detect-only endpoint is not mounted without it.
	LPR handler.PlateReader
}

func SetupRouter(svc Services, authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager, qrCodeDir string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if qrCodeDir != "" {
		r.Static("/static/qrcodes", qrCodeDir)
	}

	if wsManager != nil {
		wsHandler := handler.NewWebSocketHandler(wsManager)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(svc.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	v1.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
	{
		sessionH := handler.NewParkingSessionHandler(svc.Parking)
		v1.POST("/entry", sessionH.RegisterEntry)
		v1.POST("/exit", sessionH.ProcessExit)
		v1.POST("/pay", sessionH.ProcessPayment)
		v1.POST("/purge", authMw.AuthorizeRole(domain.RoleAdmin), sessionH.PurgeSessions)

		sessionRoutes := v1.Group("/sessions")
		{
			sessionRoutes.GET("", sessionH.FindSessions)
			sessionRoutes.GET("/:id", sessionH.GetSession)
		}

		if svc.LPR != nil {
			lprH := handler.NewLPRHandler(svc.LPR)
			v1.POST("/lpr/detect", lprH.DetectPlate)
		}
	}
	return r
}
