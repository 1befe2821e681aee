package activity

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestRepository_LogAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	owner := uuid.New()
	portfolioID := uuid.New()
	event := types.ActivityRecord{
		OwnerID:    owner,
		ActorID:    owner,
		Verb:       "portfolio.published",
		ObjectType: "portfolio",
		ObjectID:   portfolioID.String(),
		Channel:    "lifecycle",
		Data: map[string]any{
			"from": "draft",
			"to":   "published",
		},
	}
	require.NoError(t, store.Log(ctx, event))
	require.NoError(t, store.Log(ctx, types.ActivityRecord{
		OwnerID: uuid.New(),
		Verb:    "portfolio.published",
	}))

	page, err := store.ListActivity(ctx, types.ActivityFilter{
		OwnerID:    owner,
		Verbs:      []string{"portfolio.published"},
		Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, 1, page.Total)
	require.False(t, page.HasMore)
	require.Equal(t, "portfolio.published", page.Records[0].Verb)
	require.Equal(t, portfolioID.String(), page.Records[0].ObjectID)
	require.Equal(t, "published", page.Records[0].Data["to"])
}

func TestRepository_MasksContactDetails(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	owner := uuid.New()
	require.NoError(t, store.Log(ctx, types.ActivityRecord{
		OwnerID: owner,
		Verb:    "portfolio.updated",
		Data: map[string]any{
			"email":    "ana@example.com",
			"mutation": "update_section",
		},
	}))

	page, err := store.ListActivity(ctx, types.ActivityFilter{OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.NotEqual(t, "ana@example.com", page.Records[0].Data["email"])
	require.Equal(t, "update_section", page.Records[0].Data["mutation"])
}

func TestRepository_PaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestActivityDB(t)
	applyActivityDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	owner := uuid.New()
	base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, store.Log(ctx, types.ActivityRecord{
			OwnerID:    owner,
			Verb:       "portfolio.updated",
			Data:       map[string]any{"index": i},
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := store.ListActivity(ctx, types.ActivityFilter{
		OwnerID:    owner,
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Equal(t, 3, page.Total)
	require.True(t, page.HasMore)
	require.Equal(t, 2, page.NextOffset)
	require.True(t, page.Records[0].OccurredAt.Equal(base.Add(2*time.Minute)))

	since := base.Add(time.Minute)
	page, err = store.ListActivity(ctx, types.ActivityFilter{
		OwnerID: owner,
		Since:   &since,
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
}

func newTestActivityDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyActivityDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00004_portfolio_activity.up.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
