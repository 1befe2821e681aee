// Package httpapi exposes the portfolio service over HTTP using gin.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/authctx"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/query"
	"github.com/goliatone/go-portfolio/service"
	"github.com/google/uuid"
)

const (
	zipContentType = "application/zip"
	// maxPatchBody bounds a PATCH mutation batch.
	maxPatchBody int64 = 1 << 20
	// exportWarningsHeader carries the export warnings as a JSON array of
	// {"sectionId","message"} objects.
	exportWarningsHeader = "X-Export-Warnings"
)

// Backend is the slice of the service used by the handlers.
type Backend interface {
	Commands() service.Commands
	Queries() service.Queries
	HealthCheck(ctx context.Context) error
}

// ActorResolver extracts the acting owner from the request.
type ActorResolver func(c *gin.Context) (types.ActorRef, error)

// ContextActor resolves the actor stored on the request context by go-auth.
func ContextActor(c *gin.Context) (types.ActorRef, error) {
	ref, _, err := authctx.ResolveActor(c.Request.Context())
	return ref, err
}

// Config wires a Handler.
type Config struct {
	Backend      Backend
	Actor        ActorResolver
	Logger       types.Logger
	AssetBaseURL string
}

// Handler serves the portfolio endpoints.
type Handler struct {
	backend   Backend
	actor     ActorResolver
	log       types.Logger
	assetBase string
}

// NewHandler constructs the handler. A nil ActorResolver uses ContextActor.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		backend:   cfg.Backend,
		actor:     cfg.Actor,
		log:       cfg.Logger,
		assetBase: cfg.AssetBaseURL,
	}
	if h.actor == nil {
		h.actor = ContextActor
	}
	if h.log == nil {
		h.log = types.NopLogger{}
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/portfolios", h.ListPortfolios)
	api.POST("/portfolios", h.CreatePortfolio)
	api.GET("/portfolios/quota", h.Quota)
	api.GET("/portfolios/:id", h.GetPortfolio)
	api.PATCH("/portfolios/:id", h.UpdatePortfolio)
	api.DELETE("/portfolios/:id", h.DeletePortfolio)
	api.POST("/portfolios/:id/publish", h.Publish)
	api.POST("/portfolios/:id/unpublish", h.Unpublish)
	api.GET("/portfolios/:id/preview", h.Preview)
	api.GET("/portfolios/:id/export", h.Export)
	api.POST("/portfolios/:id/activity", h.RecordActivity)
	api.GET("/activity", h.Activity)
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if err := h.backend.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/portfolios
func (h *Handler) ListPortfolios(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	owner, ok := h.optionalUUID(c, "owner_id")
	if !ok {
		return
	}
	list, err := h.backend.Queries().PortfolioList.Query(c.Request.Context(), query.PortfolioListInput{
		Actor:   actor,
		OwnerID: owner,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": list, "count": len(list)})
}

type createRequest struct {
	Title    string `json:"title"`
	Template string `json:"template"`
}

// POST /api/portfolios
func (h *Handler) CreatePortfolio(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, document.Invalid("body", "malformed JSON body"))
			return
		}
	}
	result := &command.PortfolioCreateResult{}
	err := h.backend.Commands().PortfolioCreate.Execute(c.Request.Context(), command.PortfolioCreateInput{
		Actor:    actor,
		Title:    req.Title,
		Template: req.Template,
		Result:   result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"portfolio": result.Portfolio, "quota": result.Quota})
}

// GET /api/portfolios/quota
func (h *Handler) Quota(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	status, err := h.backend.Queries().QuotaStatus.Query(c.Request.Context(), query.QuotaStatusInput{Actor: actor})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /api/portfolios/:id
func (h *Handler) GetPortfolio(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	detail, err := h.backend.Queries().PortfolioDetail.Query(c.Request.Context(), query.PortfolioDetailInput{
		Actor:       actor,
		PortfolioID: id,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// PATCH /api/portfolios/:id
// Body: a JSON array of {"kind": ...} mutation envelopes applied atomically.
func (h *Handler) UpdatePortfolio(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPatchBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, document.Invalid("body", "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes"))
			return
		}
		h.respondError(c, document.Invalid("body", "unreadable request body"))
		return
	}
	mutations, err := document.DecodeMutations(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result := &command.PortfolioUpdateResult{}
	err = h.backend.Commands().PortfolioUpdate.Execute(c.Request.Context(), command.PortfolioUpdateInput{
		Actor:       actor,
		PortfolioID: id,
		Mutations:   mutations,
		Result:      result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": result.Portfolio})
}

// DELETE /api/portfolios/:id
func (h *Handler) DeletePortfolio(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	err := h.backend.Commands().PortfolioDelete.Execute(c.Request.Context(), command.PortfolioDeleteInput{
		Actor:       actor,
		PortfolioID: id,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/portfolios/:id/publish
func (h *Handler) Publish(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	result := &command.PortfolioPublishResult{}
	err := h.backend.Commands().PortfolioPublish.Execute(c.Request.Context(), command.PortfolioPublishInput{
		Actor:       actor,
		PortfolioID: id,
		Result:      result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/portfolios/:id/unpublish
func (h *Handler) Unpublish(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	result := &command.PortfolioPublishResult{}
	err := h.backend.Commands().PortfolioUnpublish.Execute(c.Request.Context(), command.PortfolioUnpublishInput{
		Actor:       actor,
		PortfolioID: id,
		Result:      result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/portfolios/:id/preview
// Optional: format=html returns the markup with the stylesheet inlined.
func (h *Handler) Preview(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	preview, err := h.backend.Queries().RenderPreview.Query(c.Request.Context(), query.RenderPreviewInput{
		Actor:        actor,
		PortfolioID:  id,
		AssetBaseURL: h.assetBase,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if c.Query("format") == "html" {
		markup := inlineStylesheet(preview.HTML, preview.CSS)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(markup))
		return
	}
	c.JSON(http.StatusOK, preview)
}

// GET /api/portfolios/:id/export
func (h *Handler) Export(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	result := &command.PortfolioExportResult{}
	err := h.backend.Commands().PortfolioExport.Execute(c.Request.Context(), command.PortfolioExportInput{
		Actor:       actor,
		PortfolioID: id,
		Result:      result,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(result.Warnings) > 0 {
		encoded, err := json.Marshal(result.Warnings)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Header(exportWarningsHeader, string(encoded))
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, zipContentType, result.Archive.Bytes)
}

// GET /api/activity
// Optional filters: owner_id, object_id, verb (repeatable), since, until (RFC3339), limit, offset
func (h *Handler) Activity(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}
	owner, ok := h.optionalUUID(c, "owner_id")
	if !ok {
		return
	}
	filter := types.ActivityFilter{
		Actor:    actor,
		OwnerID:  owner,
		ObjectID: c.Query("object_id"),
		Verbs:    c.QueryArray("verb"),
	}
	var err error
	if filter.Since, err = optionalTime(c.Query("since")); err != nil {
		h.respondError(c, document.Invalid("since", "expected an RFC3339 timestamp"))
		return
	}
	if filter.Until, err = optionalTime(c.Query("until")); err != nil {
		h.respondError(c, document.Invalid("until", "expected an RFC3339 timestamp"))
		return
	}
	if filter.Pagination.Limit, ok = h.optionalCount(c, "limit"); !ok {
		return
	}
	if filter.Pagination.Offset, ok = h.optionalCount(c, "offset"); !ok {
		return
	}

	page, err := h.backend.Queries().ActivityFeed.Query(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type activityRequest struct {
	Verb string         `json:"verb"`
	Data map[string]any `json:"data"`
}

// POST /api/portfolios/:id/activity
// Body: {"verb": "portfolio.deployed", "data": {...}}
func (h *Handler) RecordActivity(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, document.Invalid("body", "malformed JSON body"))
		return
	}
	record := &types.ActivityRecord{}
	err := h.backend.Commands().PortfolioActivity.Execute(c.Request.Context(), command.PortfolioActivityInput{
		Actor:       actor,
		PortfolioID: id,
		Verb:        req.Verb,
		Data:        req.Data,
		Result:      record,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) requireActor(c *gin.Context) (types.ActorRef, bool) {
	actor, err := h.actor(c)
	if err != nil {
		h.respondError(c, err)
		return types.ActorRef{}, false
	}
	if actor.ID == uuid.Nil {
		h.respondError(c, types.ErrActorRequired)
		return types.ActorRef{}, false
	}
	return actor, true
}

func (h *Handler) actorAndID(c *gin.Context) (types.ActorRef, uuid.UUID, bool) {
	actor, ok := h.requireActor(c)
	if !ok {
		return types.ActorRef{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// Malformed ids cannot name a stored portfolio.
		h.respondError(c, types.ErrPortfolioNotFound)
		return types.ActorRef{}, uuid.Nil, false
	}
	return actor, id, true
}

func (h *Handler) optionalUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(c, document.Invalid(key, "expected a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) optionalCount(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.respondError(c, document.Invalid(key, "expected a non-negative integer"))
		return 0, false
	}
	return n, true
}

func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func inlineStylesheet(markup, css string) string {
	const link = `<link rel="stylesheet" href="styles.css">`
	if css == "" || !strings.Contains(markup, link) {
		return markup
	}
	return strings.Replace(markup, link, "<style>"+css+"</style>", 1)
}
