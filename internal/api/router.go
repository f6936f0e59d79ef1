package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hellofit/fitledger/internal/cache"
	"github.com/hellofit/fitledger/internal/feed"
	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/progress"
	"github.com/hellofit/fitledger/internal/store"
	"github.com/hellofit/fitledger/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	store   store.Store
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(st store.Store, redisCache *cache.Cache, feedTTL time.Duration) *Router {
	handler := NewJSONRPCHandler()
	router := &Router{
		handler: handler,
		store:   st,
		cache:   redisCache,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}

	// Register all API methods
	router.registerMethods(feedTTL)

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
func (r *Router) registerMethods(feedTTL time.Duration) {
	reconciler := ledger.NewReconciler(r.store)
	progressSvc := progress.NewService(r.store)
	feedSvc := feed.NewService(r.store, r.cache, feedTTL)

	// Daily activity ledger (workouts + meals)
	ledgerAPI := NewLedgerAPI(r.store, reconciler, progressSvc)
	r.handler.RegisterMethod("ledger.catalog", ledgerAPI.Catalog)
	r.handler.RegisterMethod("ledger.today", ledgerAPI.Today)
	r.handler.RegisterMethod("ledger.add_today", ledgerAPI.AddToday)
	r.handler.RegisterMethod("ledger.complete", ledgerAPI.Complete)
	r.handler.RegisterMethod("ledger.remove_today", ledgerAPI.RemoveToday)
	r.handler.RegisterMethod("ledger.dashboard", ledgerAPI.Dashboard)

	// Progress tracking
	progressAPI := NewProgressAPI(progressSvc)
	r.handler.RegisterMethod("progress.save_weigh_in", progressAPI.SaveWeighIn)
	r.handler.RegisterMethod("progress.history", progressAPI.History)
	r.handler.RegisterMethod("progress.streak", progressAPI.Streak)

	// Community feed
	feedAPI := NewFeedAPI(feedSvc)
	r.handler.RegisterMethod("feed.list_posts", feedAPI.ListPosts)
	r.handler.RegisterMethod("feed.create_post", feedAPI.CreatePost)
	r.handler.RegisterMethod("feed.share_meals", feedAPI.ShareMeals)
	r.handler.RegisterMethod("feed.share_workout", feedAPI.ShareWorkout)
	r.handler.RegisterMethod("feed.toggle_like", feedAPI.ToggleLike)
	r.handler.RegisterMethod("feed.add_comment", feedAPI.AddComment)
	r.handler.RegisterMethod("feed.list_comments", feedAPI.ListComments)

	// Account
	accountAPI := NewAccountAPI(progressSvc)
	r.handler.RegisterMethod("account.get_profile", accountAPI.GetProfile)
	r.handler.RegisterMethod("account.update_preferences", accountAPI.UpdatePreferences)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "fitledger-api",
	})
}
