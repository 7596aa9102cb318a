package server

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/provider"
	"github.com/kbukum/phrame/sse"
	"github.com/kbukum/phrame/validation"
)

const (
	defaultImageLimit      = 50
	maxImageLimit          = 500
	defaultTranscriptLimit = 20
	maxTranscriptLimit     = 200
)

type transcriptRequest struct {
	Transcript string `json:"transcript" validate:"required"`
}

type manualRequest struct {
	Summary string `json:"summary" validate:"required,min_words=1"`
}

type summarizeRequest struct {
	Transcripts []string `json:"transcripts" validate:"required,min=1,dive,required"`
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,required"`
}

type providerInfo struct {
	Name      provider.Name `json:"name"`
	Available bool          `json:"available"`
	Summary   bool          `json:"summary"`
	Images    bool          `json:"images"`
}

// bind decodes the JSON body into v and validates it.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return false
	}
	if err := validation.Validate(v); err != nil {
		RespondWithError(c, err)
		return false
	}
	return true
}

// bindOptional is bind for requests whose body may be absent.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bind(c, v)
}

// queryLimit reads the limit query parameter, capped at most.
func queryLimit(c *gin.Context, def, most int) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		RespondWithError(c, errors.InvalidInput("limit", "must be a positive integer"))
		return 0, false
	}
	return min(n, most), true
}

func (a *API) events(c *gin.Context) {
	role := strings.TrimSpace(c.Query("role"))
	if role == "" {
		role = "client"
	}
	if strings.Contains(role, ":") {
		RespondWithError(c, errors.InvalidInput("role", "must not contain ':'"))
		return
	}
	sse.ServeSSE(a.deps.Hub, c.Writer, c.Request, role+":"+uuid.NewString())
}

func (a *API) listTranscripts(c *gin.Context) {
	limit, ok := queryLimit(c, defaultTranscriptLimit, maxTranscriptLimit)
	if !ok {
		return
	}
	page, err := a.deps.Catalog.PageTranscripts(c.Request.Context(), c.Query("beforeId"), limit)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, page)
}

func (a *API) deleteTranscripts(c *gin.Context) {
	var req idsRequest
	if !bindOptional(c, &req) {
		return
	}
	ctx := c.Request.Context()
	n, err := a.deps.Catalog.PurgeTranscripts(ctx, req.IDs)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	a.log.Info(fmt.Sprintf("deleted %d transcript(s)", n))
	if err := a.deps.Notifier.Broadcast(ctx, coordinator.EventReloadTranscripts, map[string]int64{"deleted": n}); err != nil {
		a.log.Warn("broadcast reload: " + errors.Describe(err))
	}
	RespondOK(c, gin.H{"deleted": n})
}

func (a *API) addTranscript(c *gin.Context) {
	var req transcriptRequest
	if !bind(c, &req) {
		return
	}
	t, kept, err := a.deps.Intake.Add(c.Request.Context(), req.Transcript)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if !kept {
		RespondOK(c, gin.H{"stored": false})
		return
	}
	RespondCreated(c, t)
}

func (a *API) manualSummary(c *gin.Context) {
	var req manualRequest
	if !bind(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Summary)
	if text == "" {
		RespondWithError(c, errors.MissingField("summary"))
		return
	}
	a.startCycle(c, "manual summary", func(ctx context.Context, cl *coordinator.Claim) (coordinator.Result, error) {
		return cl.SubmitSummary(ctx, text)
	})
}

func (a *API) processTranscripts(c *gin.Context) {
	a.startCycle(c, "transcript cycle", func(ctx context.Context, cl *coordinator.Claim) (coordinator.Result, error) {
		return cl.ProcessTranscripts(ctx)
	})
}

func (a *API) randomCycle(c *gin.Context) {
	seed := provider.Seed{Prompt: c.Query("prompt"), Context: c.Query("context")}
	a.startCycle(c, "random cycle", func(ctx context.Context, cl *coordinator.Claim) (coordinator.Result, error) {
		return cl.RandomCycle(ctx, seed)
	})
}

func (a *API) getState(c *gin.Context) {
	st, err := a.deps.Coordinator.RuntimeState().Get(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, st)
}

func (a *API) patchState(c *gin.Context) {
	var patch coordinator.StatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if patch.Image != nil && patch.Image.Index != nil && *patch.Image.Index < 0 {
		RespondWithError(c, errors.InvalidInput("image.index", "must not be negative"))
		return
	}
	ctx := c.Request.Context()
	st, err := a.deps.Coordinator.RuntimeState().Patch(ctx, patch)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if err := a.deps.Notifier.Broadcast(ctx, coordinator.EventState, st); err != nil {
		a.log.Warn("broadcast state: " + errors.Describe(err))
	}
	RespondOK(c, st)
}

func (a *API) randomSummary(c *gin.Context) {
	name := a.deps.Coordinator.SummaryProvider()
	if _, err := a.deps.Registry.Summarizer(name); err != nil {
		RespondWithError(c, err)
		return
	}
	seed := provider.Seed{Prompt: c.Query("prompt"), Context: c.Query("context")}
	text, ok := a.deps.Coordinator.RequestRandomSummary(c.Request.Context(), name, seed)
	if !ok {
		RespondWithError(c, errors.ProviderFailed(string(name), "no random summary"))
		return
	}
	RespondOK(c, gin.H{"summary": text, "ai": name})
}

func (a *API) summarize(c *gin.Context) {
	var req summarizeRequest
	if !bind(c, &req) {
		return
	}
	name := a.deps.Coordinator.SummaryProvider()
	if _, err := a.deps.Registry.Summarizer(name); err != nil {
		RespondWithError(c, err)
		return
	}
	text, ok := a.deps.Coordinator.RequestSummary(c.Request.Context(), name, req.Transcripts)
	if !ok {
		RespondWithError(c, errors.ProviderFailed(string(name), "no summary"))
		return
	}
	RespondOK(c, gin.H{"summary": text, "ai": name})
}

func (a *API) listCycles(c *gin.Context) {
	RespondOK(c, a.deps.Coordinator.Cycles())
}

func (a *API) getCycle(c *gin.Context) {
	id := c.Param("id")
	cy, ok := a.deps.Coordinator.State(id)
	if !ok {
		RespondWithError(c, errors.NotFound("cycle", id))
		return
	}
	RespondOK(c, cy)
}

func (a *API) listProviders(c *gin.Context) {
	ctx := c.Request.Context()
	names := a.deps.Registry.Names()
	out := make([]providerInfo, 0, len(names))
	for _, n := range names {
		p, _ := a.deps.Registry.Get(n)
		_, summary := p.(provider.Summarizer)
		_, images := p.(provider.ImageGenerator)
		out = append(out, providerInfo{Name: n, Available: p.IsAvailable(ctx), Summary: summary, Images: images})
	}
	RespondOK(c, out)
}

func (a *API) providerStatus(c *gin.Context) {
	statuses := a.deps.Coordinator.TestAllProviders(c.Request.Context())
	for i := range statuses {
		if len(statuses[i].Details) > 0 {
			statuses[i].Details = logger.Redact(statuses[i].Details)
		}
	}
	RespondOK(c, statuses)
}

func (a *API) testProvider(c *gin.Context) {
	name, err := provider.ParseName(c.Param("name"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	status := a.deps.Coordinator.TestProviderConnectivity(c.Request.Context(), name)
	if len(status.Details) > 0 {
		status.Details = logger.Redact(status.Details)
	}
	RespondOK(c, status)
}

func (a *API) listImages(c *gin.Context) {
	limit, ok := queryLimit(c, defaultImageLimit, maxImageLimit)
	if !ok {
		return
	}
	images, err := a.deps.Catalog.ListImages(c.Request.Context(), limit)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, images)
}

func (a *API) serveImage(c *gin.Context) {
	name := path.Clean(strings.TrimPrefix(c.Param("path"), "/"))
	if name == "." || strings.HasPrefix(name, "..") {
		RespondWithError(c, errors.InvalidInput("path", "invalid image path"))
		return
	}
	ctx := c.Request.Context()
	exists, err := a.deps.Storage.Exists(ctx, name)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if !exists {
		RespondWithError(c, errors.NotFound("image", name))
		return
	}
	rc, err := a.deps.Storage.Download(ctx, name)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		a.log.Debug("image stream interrupted", logger.Fields("path", name, "error", err.Error()))
	}
}
