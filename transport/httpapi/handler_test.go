package httpapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/adapter/memory"
	"github.com/goliatone/go-portfolio/command"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const actorHeader = "X-Test-Actor"

func headerActor(c *gin.Context) (types.ActorRef, error) {
	raw := c.GetHeader(actorHeader)
	if raw == "" {
		return types.ActorRef{}, types.ErrActorRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return types.ActorRef{}, types.ErrActorRequired
	}
	return types.ActorRef{ID: id, Type: c.GetHeader("X-Test-Role")}, nil
}

type testServer struct {
	router *gin.Engine
	subs   *memory.SubscriptionStore
	assets *memory.AssetStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	subs := memory.NewSubscriptionStore()
	assets := memory.NewAssetStore()
	svc := service.New(service.Config{
		PortfolioRepository:  memory.NewPortfolioRepository(),
		SubscriptionProvider: subs,
		AssetResolver:        assets,
		ActivitySink:         memory.NewActivityStore(),
		AuthorizationPolicy:  types.RoleAuthorizationPolicy{},
	})
	require.True(t, svc.Ready())

	router := gin.New()
	NewHandler(Config{Backend: svc, Actor: headerActor, AssetBaseURL: "https://cdn.test"}).Register(router)
	return &testServer{router: router, subs: subs, assets: assets}
}

func (s *testServer) do(t *testing.T, method, path string, actor uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != uuid.Nil {
		req.Header.Set(actorHeader, actor.String())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type createdResponse struct {
	Portfolio struct {
		ID       uuid.UUID `json:"id"`
		Title    string    `json:"title"`
		Template string    `json:"template"`
	} `json:"portfolio"`
	Quota struct {
		Limit     int  `json:"limit"`
		Count     int  `json:"count"`
		CanCreate bool `json:"canCreate"`
	} `json:"quota"`
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(Config{Backend: service.New(service.Config{})}).Register(router)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_CreateAndQuota(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()

	rec := s.do(t, http.MethodPost, "/api/portfolios", owner, `{"title":"Studio","template":"classic"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createdResponse](t, rec)
	require.Equal(t, "Studio", created.Portfolio.Title)
	require.Equal(t, "classic", created.Portfolio.Template)
	require.Equal(t, 1, created.Quota.Limit)
	require.False(t, created.Quota.CanCreate)

	rec = s.do(t, http.MethodPost, "/api/portfolios", owner, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decode[ErrorEnvelope](t, rec)
	require.Equal(t, command.TextCodeQuotaExceeded, envelope.Error.Code)
	require.Equal(t, "free", envelope.Error.Metadata["tier"])

	rec = s.do(t, http.MethodGet, "/api/portfolios/quota", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, http.MethodGet, "/api/portfolios", uuid.Nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateValidationAndOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	created := decode[createdResponse](t, s.do(t, http.MethodPost, "/api/portfolios", owner, ""))
	path := "/api/portfolios/" + created.Portfolio.ID.String()

	rec := s.do(t, http.MethodPatch, path, owner, `[{"kind":"rename","title":"Renamed"},{"kind":"update_settings","settings":{"primaryColor":"blue-ish"}}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	envelope := decode[ErrorEnvelope](t, rec)
	require.Equal(t, command.TextCodeValidation, envelope.Error.Code)
	require.Equal(t, "settings.primaryColor", envelope.Error.Metadata["field"])

	rec = s.do(t, http.MethodGet, path, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"My Portfolio"`)

	rec = s.do(t, http.MethodPatch, path, owner, `[{"kind":"rename","title":"Renamed"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"title":"Renamed"`)

	rec = s.do(t, http.MethodGet, path, uuid.New(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/portfolios/not-a-uuid", owner, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_PublishExportAndDelete(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	created := decode[createdResponse](t, s.do(t, http.MethodPost, "/api/portfolios", owner, `{"title":"Jane Doe"}`))
	path := "/api/portfolios/" + created.Portfolio.ID.String()

	rec := s.do(t, http.MethodPatch, path, owner, `[{"kind":"update_section","id":"about-1","content":{"description":"Hi","image":"uploads/me.png"}}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s.assets.Put("uploads/me.png", []byte("PNG"))

	rec = s.do(t, http.MethodPost, path+"/publish", owner, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"to":"published"`)

	rec = s.do(t, http.MethodPost, path+"/publish", owner, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, path+"/preview?format=html", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "https://cdn.test/"+owner.String()+"/uploads/me.png")
	require.Contains(t, rec.Body.String(), "<style>")

	rec = s.do(t, http.MethodGet, path+"/export", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, zipContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="jane-doe-portfolio.zip"`, rec.Header().Get("Content-Disposition"))
	archive, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(archive.File))
	for _, f := range archive.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "assets/me.png")

	rec = s.do(t, http.MethodGet, "/api/activity?verb=portfolio.exported", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[types.ActivityPage](t, rec)
	require.Equal(t, 1, page.Total)

	rec = s.do(t, http.MethodGet, "/api/activity?since=yesterday", owner, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, path, owner, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, path, owner, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInlineStylesheet(t *testing.T) {
	markup := `<head><link rel="stylesheet" href="styles.css"></head>`
	require.Equal(t, "<head><style>body{}</style></head>", inlineStylesheet(markup, "body{}"))
	require.Equal(t, markup, inlineStylesheet(markup, ""))
}

func TestHandler_ExportReturnsWarningDetail(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	created := decode[createdResponse](t, s.do(t, http.MethodPost, "/api/portfolios", owner, `{"title":"Jane Doe"}`))
	path := "/api/portfolios/" + created.Portfolio.ID.String()

	rec := s.do(t, http.MethodPatch, path, owner, `[{"kind":"update_section","id":"about-1","content":{"description":"Hi","image":"uploads/gone.png"}}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, path+"/export", owner, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := rec.Header().Get(exportWarningsHeader)
	require.NotEmpty(t, raw)

	var warnings []render.Warning
	require.NoError(t, json.Unmarshal([]byte(raw), &warnings))
	require.Len(t, warnings, 1)
	require.Equal(t, "about-1", warnings[0].SectionID)
	require.Contains(t, warnings[0].Message, "uploads/gone.png")
	require.Contains(t, warnings[0].Message, "not found")
}

func TestHandler_RecordActivity(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	created := decode[createdResponse](t, s.do(t, http.MethodPost, "/api/portfolios", owner, ""))
	path := "/api/portfolios/" + created.Portfolio.ID.String() + "/activity"

	rec := s.do(t, http.MethodPost, path, owner, `{"verb":"portfolio.deployed","data":{"target":"netlify"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := decode[types.ActivityRecord](t, rec)
	require.Equal(t, command.VerbPortfolioDeployed, record.Verb)
	require.Equal(t, owner, record.OwnerID)
	require.Equal(t, created.Portfolio.ID.String(), record.ObjectID)

	rec = s.do(t, http.MethodPost, path, owner, `{"verb":"portfolio.published"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, command.TextCodeValidation, decode[ErrorEnvelope](t, rec).Error.Code)

	rec = s.do(t, http.MethodPost, path, uuid.New(), `{"verb":"portfolio.deployed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, path, owner, `{"verb":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/activity?verb=portfolio.deployed", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode[types.ActivityPage](t, rec).Total)
}

func TestHandler_ActivityRejectsMalformedPagination(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()

	for _, raw := range []string{"limit=ten", "offset=1.5", "limit=-1", "offset=-3"} {
		rec := s.do(t, http.MethodGet, "/api/activity?"+raw, owner, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, raw)
		envelope := decode[ErrorEnvelope](t, rec)
		require.Equal(t, command.TextCodeValidation, envelope.Error.Code, raw)
	}

	rec := s.do(t, http.MethodGet, "/api/activity?limit=5&offset=0", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_UpdateRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	created := decode[createdResponse](t, s.do(t, http.MethodPost, "/api/portfolios", owner, ""))
	path := "/api/portfolios/" + created.Portfolio.ID.String()

	title := strings.Repeat("a", int(maxPatchBody))
	rec := s.do(t, http.MethodPatch, path, owner, `[{"kind":"rename","title":"`+title+`"}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decode[ErrorEnvelope](t, rec)
	require.Equal(t, command.TextCodeValidation, envelope.Error.Code)

	rec = s.do(t, http.MethodGet, path, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), title)
}
