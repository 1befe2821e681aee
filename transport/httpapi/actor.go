package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// HeaderActor trusts an upstream gateway that forwards the authenticated
// owner id in idHeader and the role in roleHeader.
func HeaderActor(idHeader, roleHeader string) ActorResolver {
	return func(c *gin.Context) (types.ActorRef, error) {
		raw := strings.TrimSpace(c.GetHeader(idHeader))
		if raw == "" {
			return types.ActorRef{}, types.ErrActorRequired
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return types.ActorRef{}, types.ErrActorRequired
		}
		ref := types.ActorRef{ID: id, Type: types.ActorRoleOwner}
		if roleHeader != "" {
			if role := strings.TrimSpace(c.GetHeader(roleHeader)); role != "" {
				ref.Type = role
			}
		}
		return ref, nil
	}
}

// FirstActor returns the first actor resolved without error.
func FirstActor(resolvers ...ActorResolver) ActorResolver {
	return func(c *gin.Context) (types.ActorRef, error) {
		err := types.ErrActorRequired
		for _, resolve := range resolvers {
			if resolve == nil {
				continue
			}
			var ref types.ActorRef
			ref, err = resolve(c)
			if err == nil && ref.ID != uuid.Nil {
				return ref, nil
			}
		}
		return types.ActorRef{}, err
	}
}
