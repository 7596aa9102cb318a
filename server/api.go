package server

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/observability"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/server/endpoint"
	"github.com/kbukum/phrame/server/middleware"
	"github.com/kbukum/phrame/sse"
	"github.com/kbukum/phrame/storage"
	"github.com/kbukum/phrame/version"
)

// Catalog lists and curates what the pipeline stored.
type Catalog interface {
	PageTranscripts(ctx context.Context, beforeID string, limit int) (database.TranscriptPage, error)
	PurgeTranscripts(ctx context.Context, ids []string) (int64, error)
	ListImages(ctx context.Context, limit int) ([]database.ImageRecord, error)
	FrameFeed(ctx context.Context, order database.FeedOrder) ([]database.ImageRecord, error)
	SetFavorite(ctx context.Context, ids []string, favorite bool) (int64, error)
	DeleteImages(ctx context.Context, ids []string) ([]string, error)
	GalleryFilters(ctx context.Context) (map[string][]database.FilterOption, error)
	Gallery(ctx context.Context, q database.GalleryQuery) (database.GalleryPage, error)
	GalleryEntry(ctx context.Context, summaryID string) (database.GalleryEntry, error)
}

// Deps are the collaborators the API serves.
type Deps struct {
	ServiceName string
	Coordinator *coordinator.Coordinator
	Registry    *provider.Registry
	Intake      *coordinator.Intake
	Catalog     Catalog
	Notifier    coordinator.Notifier
	Hub         *sse.Hub
	// Storage holds the image files. Deleting an image removes its file
	// here.
	Storage storage.Storage
	// ServeImages mounts /images over Storage. Remote stores serve their
	// own URLs instead.
	ServeImages bool
	// ImageOrder is the default frame feed order.
	ImageOrder database.FeedOrder
	Checkers   []observability.HealthChecker
}

// API holds the HTTP handlers of phrame.
type API struct {
	deps Deps
	log  *logger.Logger

	// cycles tracks cycles started from requests so shutdown can wait.
	cycles sync.WaitGroup
}

// NewAPI creates an API.
func NewAPI(deps Deps, log *logger.Logger) *API {
	if deps.ServiceName == "" {
		deps.ServiceName = "phrame"
	}
	if deps.ImageOrder == "" {
		deps.ImageOrder = database.FeedRecent
	}
	if deps.Notifier == nil {
		deps.Notifier = coordinator.NotifierFunc(func(context.Context, string, any) error { return nil })
	}
	return &API{deps: deps, log: log.WithComponent("api")}
}

// Register mounts every route on engine. limit guards the routes that
// start provider work.
func (a *API) Register(engine *gin.Engine, limit middleware.RateLimitConfig) {
	limited := middleware.GinWrap(middleware.RateLimit(limit))

	engine.GET("/health", endpoint.Health(a.deps.ServiceName, version.Get().String(), a.deps.Checkers...))
	engine.GET("/alive", endpoint.Liveness(a.deps.ServiceName))
	engine.GET("/info", endpoint.Info(a.deps.ServiceName))
	if a.deps.ServeImages && a.deps.Storage != nil {
		engine.GET("/images/*path", a.serveImage)
	}

	api := engine.Group("/api")
	api.GET("/events", a.events)

	api.GET("/transcripts", a.listTranscripts)
	api.POST("/transcripts", a.addTranscript)
	api.DELETE("/transcripts", a.deleteTranscripts)
	api.POST("/transcripts/manual", limited, a.manualSummary)
	api.POST("/transcripts/process", limited, a.processTranscripts)

	api.GET("/state", a.getState)
	api.PATCH("/state", a.patchState)

	api.GET("/summaries/random", limited, a.randomSummary)
	api.POST("/summaries", limited, a.summarize)

	api.GET("/cycles", a.listCycles)
	api.GET("/cycles/:id", a.getCycle)
	api.POST("/cycles/random", limited, a.randomCycle)

	api.GET("/providers", a.listProviders)
	api.GET("/providers/status", limited, a.providerStatus)
	api.GET("/providers/:name/test", limited, a.testProvider)

	api.GET("/images", a.listImages)
	api.GET("/images/feed", a.imageFeed)
	api.PATCH("/images", a.favoriteImages)
	api.PATCH("/images/:id", a.favoriteImage)
	api.DELETE("/images", a.deleteImages)
	api.DELETE("/images/:id", a.deleteImage)

	api.GET("/gallery", a.gallery)
	api.GET("/gallery/filters", a.galleryFilters)
}

// Wait blocks until the cycles started through the API have finished.
func (a *API) Wait() {
	a.cycles.Wait()
}

// startCycle claims the coordinator and runs fn in the background. The
// claim is taken before answering so a 202 always means this request's
// cycle runs. The request context is detached so the cycle outlives the
// response.
func (a *API) startCycle(c *gin.Context, name string, fn func(context.Context, *coordinator.Claim) (coordinator.Result, error)) {
	ctx := context.WithoutCancel(c.Request.Context())
	claim, ok := a.deps.Coordinator.TryStart(ctx)
	if !ok {
		RespondWithError(c, coordinator.ErrBusy)
		return
	}
	a.cycles.Add(1)
	go func() {
		defer a.cycles.Done()
		defer claim.Release(ctx)
		res, err := fn(ctx, claim)
		if err != nil {
			a.log.Warn(name+" failed: "+errors.Describe(err))
			return
		}
		a.log.Info(name+" finished", logger.Fields("summary_id", res.SummaryID, "stage", string(res.Stage), "images", len(res.Images)))
	}()
	RespondAccepted(c, gin.H{"status": "processing"})
}
