package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/scope"
	"github.com/google/uuid"
)

// ActivityFeedQuery renders paginated activity feeds for dashboards.
type ActivityFeedQuery struct {
	repo  types.ActivityRepository
	guard scope.Guard
}

// NewActivityFeedQuery constructs the feed query helper.
func NewActivityFeedQuery(repo types.ActivityRepository, guard scope.Guard) *ActivityFeedQuery {
	return &ActivityFeedQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ActivityFilter, types.ActivityPage] = (*ActivityFeedQuery)(nil)

// Query fetches a page of activity logs for the filter owner, defaulting to
// the actor's own feed.
func (q *ActivityFeedQuery) Query(ctx context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	if q.repo == nil {
		return types.ActivityPage{}, types.ErrMissingActivityRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ActivityPage{}, err
	}
	filter.OwnerID = ownerOrActor(filter.OwnerID, filter.Actor)
	if err := q.guard.Enforce(ctx, filter.Actor, types.PolicyActionActivityRead, filter.OwnerID, uuid.Nil); err != nil {
		return types.ActivityPage{}, err
	}
	return q.repo.ListActivity(ctx, filter)
}
