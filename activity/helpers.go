package activity

import (
	"strings"

	"github.com/goliatone/go-auth"
	"github.com/goliatone/go-portfolio/pkg/authctx"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// RecordOption mutates the ActivityRecord produced by BuildRecordFromActor.
type RecordOption func(*types.ActivityRecord)

// WithChannel sets the channel/module field used for downstream filtering.
func WithChannel(channel string) RecordOption {
	return func(record *types.ActivityRecord) {
		record.Channel = strings.TrimSpace(channel)
	}
}

// WithOwner sets the owner whose feed the record belongs to.
func WithOwner(owner uuid.UUID) RecordOption {
	return func(record *types.ActivityRecord) {
		record.OwnerID = owner
	}
}

// BuildRecordFromActor constructs an ActivityRecord using the actor metadata
// supplied by go-auth middleware plus verb/object details and optional
// metadata. The owner defaults to the actor; metadata is copied.
func BuildRecordFromActor(actor *auth.ActorContext, verb, objectType, objectID string, metadata map[string]any, opts ...RecordOption) (types.ActivityRecord, error) {
	ref, err := authctx.ActorRefFromActorContext(actor)
	if err != nil {
		return types.ActivityRecord{}, err
	}

	record := types.ActivityRecord{
		OwnerID:    ref.ID,
		ActorID:    ref.ID,
		Verb:       strings.TrimSpace(verb),
		ObjectType: strings.TrimSpace(objectType),
		ObjectID:   strings.TrimSpace(objectID),
		Data:       cloneMap(metadata),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&record)
		}
	}

	return record, nil
}
