package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"library-lending-api/internal/handler/api"
	"library-lending-api/internal/handler/middleware"
	"library-lending-api/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	logger *middleware.Logger,
	catalogHandler *api.CatalogHandler,
	lendingHandler *api.LendingHandler,
	profileHandler *api.ProfileHandler,
	notificationHandler *api.NotificationHandler,
	identityMiddleware *middleware.IdentityMiddleware,
) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, catalogHandler, lendingHandler, profileHandler, notificationHandler, identityMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *middleware.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	catalogHandler *api.CatalogHandler,
	lendingHandler *api.LendingHandler,
	profileHandler *api.ProfileHandler,
	notificationHandler *api.NotificationHandler,
	identityMiddleware *middleware.IdentityMiddleware,
) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		addRoutes(apiGroup, []route{
			{Method: http.MethodGet, Path: "/books/:id", Handler: catalogHandler.GetBook},
			{Method: http.MethodGet, Path: "/authors/:id", Handler: catalogHandler.GetAuthor},
			{Method: http.MethodGet, Path: "/search", Handler: catalogHandler.Search},
			{Method: http.MethodGet, Path: "/home/books", Handler: catalogHandler.HomeBooks},
		})

		user := apiGroup.Group("/user")
		user.Use(identityMiddleware.RequireUser())
		{
			addRoutes(user, []route{
				{Method: http.MethodGet, Path: "/profile", Handler: profileHandler.Get},
				{Method: http.MethodGet, Path: "/notifications", Handler: notificationHandler.List},
				{Method: http.MethodGet, Path: "/notifications/count", Handler: notificationHandler.Count},
				{Method: http.MethodDelete, Path: "/notifications/:id", Handler: notificationHandler.Delete},
				{Method: http.MethodPost, Path: "/books/borrow/:id", Handler: lendingHandler.Borrow},
				{Method: http.MethodPost, Path: "/books/return/:id", Handler: lendingHandler.Return},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
