package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quietharbor/harbormind/internal/cache"
	"github.com/quietharbor/harbormind/internal/db"
	"github.com/quietharbor/harbormind/internal/feed"
	"github.com/quietharbor/harbormind/internal/reaction"
	"github.com/quietharbor/harbormind/internal/store"
	"github.com/quietharbor/harbormind/pkg/config"
	"github.com/quietharbor/harbormind/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	db      *db.DB
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, redisCache *cache.Cache, cfg *config.FeedConfig) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		db:      database,
		cache:   redisCache,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}

	router.registerMethods(cfg)

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods(cfg *config.FeedConfig) {
	backend := store.NewSQL(r.db.DB)
	service := feed.NewService(backend, r.cache, cfg)
	controller := reaction.NewController(backend)

	feedAPI := NewFeedAPI(service, controller)

	r.handler.RegisterMethod("feed.get_page", feedAPI.GetPage)
	r.handler.RegisterMethod("feed.search", feedAPI.Search)
	r.handler.RegisterMethod("feed.get_metadata", feedAPI.GetMetadata)
	r.handler.RegisterMethod("feed.invalidate_metadata", feedAPI.InvalidateMetadata)
	r.handler.RegisterMethod("feed.find_twins", feedAPI.FindTwins)
	r.handler.RegisterMethod("feed.get_entry", feedAPI.GetEntry)
	r.handler.RegisterMethod("feed.react", feedAPI.React)
	r.handler.RegisterMethod("feed.confirm_removal", feedAPI.ConfirmRemoval)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "harbormind-api",
	})
}
