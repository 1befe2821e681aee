package query

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-portfolio/adapter/memory"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/goliatone/go-portfolio/section"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var queryNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seedPortfolio(t *testing.T, repo *memory.PortfolioRepository, owner uuid.UUID, edit func(*document.Portfolio)) *document.Portfolio {
	t.Helper()
	doc := document.NewDefault(owner, queryNow)
	if edit != nil {
		edit(&doc)
	}
	created, err := repo.CreatePortfolio(context.Background(), doc, types.Unlimited)
	require.NoError(t, err)
	return created
}

func TestPortfolioListQuery_ScopesToActor(t *testing.T) {
	repo := memory.NewPortfolioRepository()
	owner := uuid.New()
	seedPortfolio(t, repo, owner, nil)
	seedPortfolio(t, repo, owner, func(p *document.Portfolio) { p.Title = "Second" })
	seedPortfolio(t, repo, uuid.New(), nil)

	q := NewPortfolioListQuery(repo, nil, scope.NewGuard(types.RoleAuthorizationPolicy{}))
	list, err := q.Query(context.Background(), PortfolioListInput{Actor: types.ActorRef{ID: owner}})
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = q.Query(context.Background(), PortfolioListInput{
		Actor:   types.ActorRef{ID: uuid.New()},
		OwnerID: owner,
	})
	require.ErrorIs(t, err, types.ErrPortfolioNotFound)

	admin := types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin}
	list, err = q.Query(context.Background(), PortfolioListInput{Actor: admin, OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestPortfolioListQuery_ResolvesIdentity(t *testing.T) {
	repo := memory.NewPortfolioRepository()
	owner := uuid.New()
	seedPortfolio(t, repo, owner, nil)

	identity := identityFunc(func(context.Context) (uuid.UUID, error) { return owner, nil })
	list, err := NewPortfolioListQuery(repo, identity, nil).Query(context.Background(), PortfolioListInput{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = NewPortfolioListQuery(repo, nil, nil).Query(context.Background(), PortfolioListInput{})
	require.ErrorIs(t, err, types.ErrActorRequired)
}

func TestPortfolioDetailQuery_ReportsAllowedTargets(t *testing.T) {
	repo := memory.NewPortfolioRepository()
	owner := uuid.New()
	draft := seedPortfolio(t, repo, owner, nil)
	live := seedPortfolio(t, repo, owner, func(p *document.Portfolio) { p.Published = true })

	q := NewPortfolioDetailQuery(repo, nil, nil, nil)
	detail, err := q.Query(context.Background(), PortfolioDetailInput{Actor: types.ActorRef{ID: owner}, PortfolioID: draft.ID})
	require.NoError(t, err)
	require.Equal(t, types.PublishStateDraft, detail.State)
	require.Equal(t, []types.PublishState{types.PublishStatePublished}, detail.AllowedTargets)

	detail, err = q.Query(context.Background(), PortfolioDetailInput{Actor: types.ActorRef{ID: owner}, PortfolioID: live.ID})
	require.NoError(t, err)
	require.Equal(t, types.PublishStatePublished, detail.State)
	require.Equal(t, []types.PublishState{types.PublishStateDraft}, detail.AllowedTargets)

	_, err = q.Query(context.Background(), PortfolioDetailInput{Actor: types.ActorRef{ID: uuid.New()}, PortfolioID: draft.ID})
	require.ErrorIs(t, err, types.ErrPortfolioNotFound)

	_, err = q.Query(context.Background(), PortfolioDetailInput{Actor: types.ActorRef{ID: owner}})
	require.ErrorIs(t, err, types.ErrPortfolioIDRequired)
}

func TestQuotaStatusQuery(t *testing.T) {
	repo := memory.NewPortfolioRepository()
	subs := memory.NewSubscriptionStore()
	owner := uuid.New()
	subs.SetTier(owner, types.TierProfessional)
	for range 3 {
		seedPortfolio(t, repo, owner, nil)
	}

	status, err := NewQuotaStatusQuery(repo, subs, nil, nil).Query(context.Background(), QuotaStatusInput{
		Actor: types.ActorRef{ID: owner},
	})
	require.NoError(t, err)
	require.Equal(t, types.TierProfessional, status.Tier)
	require.Equal(t, 3, status.Count)
	require.Equal(t, 5, status.Limit)
	require.Equal(t, 2, status.Remaining)
	require.True(t, status.CanCreate)

	_, err = NewQuotaStatusQuery(repo, nil, nil, nil).Query(context.Background(), QuotaStatusInput{Actor: types.ActorRef{ID: owner}})
	require.ErrorIs(t, err, types.ErrMissingSubscriptionProvider)
}

func TestRenderPreviewQuery_LinksOriginalAssets(t *testing.T) {
	repo := memory.NewPortfolioRepository()
	owner := uuid.New()
	created := seedPortfolio(t, repo, owner, func(p *document.Portfolio) {
		for i := range p.Sections {
			if p.Sections[i].Type == document.SectionAbout {
				p.Sections[i].Content = map[string]any{"description": "Hi", "image": "uploads/me.png"}
			}
		}
	})
	engine, err := render.NewEngine(section.NewRegistry(), nil)
	require.NoError(t, err)

	preview, err := NewRenderPreviewQuery(repo, nil, engine, nil).Query(context.Background(), RenderPreviewInput{
		Actor:        types.ActorRef{ID: owner},
		PortfolioID:  created.ID,
		AssetBaseURL: "https://cdn.test/",
	})
	require.NoError(t, err)
	require.Contains(t, preview.HTML, "https://cdn.test/"+owner.String()+"/uploads/me.png")
	require.NotContains(t, preview.HTML, "assets/me.png")
	require.NotEmpty(t, preview.CSS)

	_, err = NewRenderPreviewQuery(repo, nil, nil, nil).Query(context.Background(), RenderPreviewInput{
		Actor:       types.ActorRef{ID: owner},
		PortfolioID: created.ID,
	})
	require.ErrorIs(t, err, types.ErrServiceNotReady)
}

func TestPreviewLink(t *testing.T) {
	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	prefix := "https://cdn/x/" + owner.String()

	require.Equal(t, "uploads/a.png", previewLink("", owner, "uploads/a.png"))
	require.Equal(t, prefix+"/uploads/a.png", previewLink("https://cdn/x", owner, "/uploads/a.png"))
	require.Equal(t, prefix+"/uploads/a.png", previewLink("https://cdn/x", owner, owner.String()+"/uploads/a.png"))
	require.Equal(t, prefix+"/etc/passwd", previewLink("https://cdn/x", owner, "../../etc/passwd"))
	require.Equal(t, "https://other/a.png", previewLink("https://cdn/x", owner, "https://other/a.png"))
}

type identityFunc func(ctx context.Context) (uuid.UUID, error)

func (f identityFunc) CurrentOwner(ctx context.Context) (uuid.UUID, error) { return f(ctx) }
