package service_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-portfolio/adapter/memory"
	"github.com/goliatone/go-portfolio/command"
	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/query"
	"github.com/goliatone/go-portfolio/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newService(subs *memory.SubscriptionStore) (*service.Service, *memory.ActivityStore) {
	activity := memory.NewActivityStore()
	svc := service.New(service.Config{
		PortfolioRepository:  memory.NewPortfolioRepository(),
		SubscriptionProvider: subs,
		AssetResolver:        memory.NewAssetStore(),
		ActivitySink:         activity,
		AuthorizationPolicy:  types.RoleAuthorizationPolicy{},
	})
	return svc, activity
}

func TestService_ReadyAndHealth(t *testing.T) {
	svc, _ := newService(memory.NewSubscriptionStore())
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(context.Background()))
	require.NotNil(t, svc.Engine())

	empty := service.New(service.Config{})
	require.False(t, empty.Ready())
	require.ErrorIs(t, empty.HealthCheck(context.Background()), types.ErrMissingPortfolioRepository)

	var nilSvc *service.Service
	require.False(t, nilSvc.Ready())
	require.ErrorIs(t, nilSvc.HealthCheck(context.Background()), types.ErrServiceNotReady)
}

func TestService_PortfolioWorkflow(t *testing.T) {
	ctx := context.Background()
	subs := memory.NewSubscriptionStore()
	svc, activity := newService(subs)
	owner := uuid.New()
	actor := types.ActorRef{ID: owner}
	subs.SetTier(owner, types.TierProfessional)

	created := &command.PortfolioCreateResult{}
	require.NoError(t, svc.Commands().PortfolioCreate.Execute(ctx, command.PortfolioCreateInput{
		Actor:    actor,
		Title:    "Studio",
		Template: "minimal",
		Result:   created,
	}))
	require.Equal(t, "minimal", created.Portfolio.Template)
	require.Equal(t, 4, created.Quota.Remaining)

	require.NoError(t, svc.Commands().PortfolioUpdate.Execute(ctx, command.PortfolioUpdateInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
		Mutations: []document.Mutation{
			document.UpdateSection{ID: "about-1", Content: map[string]any{"description": "Designer"}},
		},
	}))

	published := &command.PortfolioPublishResult{}
	require.NoError(t, svc.Commands().PortfolioPublish.Execute(ctx, command.PortfolioPublishInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
		Result:      published,
	}))
	require.Equal(t, types.PublishStatePublished, published.To)

	detail, err := svc.Queries().PortfolioDetail.Query(ctx, query.PortfolioDetailInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
	})
	require.NoError(t, err)
	require.True(t, detail.Portfolio.Published)
	require.Equal(t, []types.PublishState{types.PublishStateDraft}, detail.AllowedTargets)

	exported := &command.PortfolioExportResult{}
	require.NoError(t, svc.Commands().PortfolioExport.Execute(ctx, command.PortfolioExportInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
		Result:      exported,
	}))
	require.Equal(t, "studio-portfolio.zip", exported.Filename)
	require.NotEmpty(t, exported.Archive.Bytes)

	preview, err := svc.Queries().RenderPreview.Query(ctx, query.RenderPreviewInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
	})
	require.NoError(t, err)
	require.Contains(t, preview.HTML, "Designer")

	feed, err := svc.Queries().ActivityFeed.Query(ctx, types.ActivityFilter{Actor: actor})
	require.NoError(t, err)
	require.Equal(t, 4, feed.Total)
	require.Len(t, activity.Records(), 4)

	quota, err := svc.Queries().QuotaStatus.Query(ctx, query.QuotaStatusInput{Actor: actor})
	require.NoError(t, err)
	require.Equal(t, 1, quota.Count)

	require.NoError(t, svc.Commands().PortfolioDelete.Execute(ctx, command.PortfolioDeleteInput{
		Actor:       actor,
		PortfolioID: created.Portfolio.ID,
	}))
	list, err := svc.Queries().PortfolioList.Query(ctx, query.PortfolioListInput{Actor: actor})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestService_ForeignActorCannotPublish(t *testing.T) {
	ctx := context.Background()
	subs := memory.NewSubscriptionStore()
	svc, _ := newService(subs)
	owner := uuid.New()

	created := &command.PortfolioCreateResult{}
	require.NoError(t, svc.Commands().PortfolioCreate.Execute(ctx, command.PortfolioCreateInput{
		Actor:  types.ActorRef{ID: owner},
		Result: created,
	}))

	err := svc.Commands().PortfolioPublish.Execute(ctx, command.PortfolioPublishInput{
		Actor:       types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSupport},
		PortfolioID: created.Portfolio.ID,
	})
	require.ErrorIs(t, err, types.ErrPortfolioNotFound)
}
