package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/database"
	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
)

const defaultGalleryLimit = 10

type favoriteRequest struct {
	IDs      []string `json:"ids" validate:"required,min=1,dive,required"`
	Favorite *bool    `json:"favorite" validate:"required"`
}

type favoriteOneRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type deleteImagesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (a *API) imageFeed(c *gin.Context) {
	order := a.deps.ImageOrder
	if s := c.Query("order"); s != "" {
		order = database.FeedOrder(s)
	}
	if order != database.FeedRecent && order != database.FeedRandom {
		RespondWithError(c, errors.InvalidInput("order", "must be recent or random"))
		return
	}
	images, err := a.deps.Catalog.FrameFeed(c.Request.Context(), order)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, images)
}

func (a *API) favoriteImages(c *gin.Context) {
	var req favoriteRequest
	if !bind(c, &req) {
		return
	}
	a.setFavorite(c, req.IDs, *req.Favorite)
}

func (a *API) favoriteImage(c *gin.Context) {
	var req favoriteOneRequest
	if !bind(c, &req) {
		return
	}
	a.setFavorite(c, []string{c.Param("id")}, *req.Favorite)
}

func (a *API) setFavorite(c *gin.Context, ids []string, favorite bool) {
	ctx := c.Request.Context()
	n, err := a.deps.Catalog.SetFavorite(ctx, ids, favorite)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if n == 0 {
		RespondWithError(c, errors.NotFound("image", strings.Join(ids, ",")))
		return
	}
	a.reloadFrames(ctx, "favorite")
	RespondOK(c, gin.H{"updated": n})
}

func (a *API) deleteImages(c *gin.Context) {
	var req deleteImagesRequest
	if !bind(c, &req) {
		return
	}
	a.removeImages(c, req.IDs)
}

func (a *API) deleteImage(c *gin.Context) {
	a.removeImages(c, []string{c.Param("id")})
}

// removeImages deletes the rows first and then the files. A file that
// cannot be removed is logged; its row is already gone.
func (a *API) removeImages(c *gin.Context, ids []string) {
	ctx := c.Request.Context()
	files, err := a.deps.Catalog.DeleteImages(ctx, ids)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if len(files) == 0 {
		RespondWithError(c, errors.NotFound("image", strings.Join(ids, ",")))
		return
	}
	if a.deps.Storage != nil {
		for _, name := range files {
			if err := a.deps.Storage.Delete(ctx, name); err != nil {
				a.log.Error("delete image file: "+errors.Describe(err), logger.Fields("filename", name))
			}
		}
	}
	a.reloadFrames(ctx, "delete")
	RespondOK(c, gin.H{"deleted": len(files)})
}

func (a *API) reloadFrames(ctx context.Context, reason string) {
	if err := a.deps.Notifier.Broadcast(ctx, coordinator.EventReloadImages, map[string]string{"reason": reason}); err != nil {
		a.log.Warn("broadcast reload: " + errors.Describe(err))
	}
}

func (a *API) galleryFilters(c *gin.Context) {
	filters, err := a.deps.Catalog.GalleryFilters(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, filters)
}

// gallery serves one summary when summaryId is given and a page of
// summaries otherwise. favorites takes "true", "false" or both.
func (a *API) gallery(c *gin.Context) {
	ctx := c.Request.Context()
	if id := c.Query("summaryId"); id != "" {
		entry, err := a.deps.Catalog.GalleryEntry(ctx, id)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		RespondOK(c, entry)
		return
	}

	q := database.GalleryQuery{
		BeforeSummaryID: c.Query("beforeSummaryId"),
		AIs:             splitList(c.Query("ais")),
		Styles:          splitList(c.Query("styles")),
		Text:            strings.TrimSpace(c.Query("summary")),
		Limit:           defaultGalleryLimit,
	}
	switch s := c.Query("limit"); s {
	case "":
	case "false":
		q.Limit = 0
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			RespondWithError(c, errors.InvalidInput("limit", "must be a positive integer or false"))
			return
		}
		q.Limit = n
	}
	favorites := splitList(c.Query("favorites"))
	var wantTrue, wantFalse bool
	for _, f := range favorites {
		switch f {
		case "true":
			wantTrue = true
		case "false":
			wantFalse = true
		default:
			RespondWithError(c, errors.InvalidInput("favorites", "must be true, false or both"))
			return
		}
	}
	if wantTrue != wantFalse {
		q.Favorite = &wantTrue
	}

	page, err := a.deps.Catalog.Gallery(ctx, q)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, page)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
