package portfolios

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed portfolio store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type portfolioStore interface {
	repository.Repository[*Record]
}

// Repository implements types.PortfolioRepository. Reads go through the
// generic repository; count-and-create and delete run in transactions that
// keep the portfolio_owners counter in step with the portfolios table.
type Repository struct {
	portfolioStore
	db    *bun.DB
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default portfolio repository. A DB is
// required because quota-gated creation runs in a transaction.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("portfolios: db required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Repository{
		portfolioStore: repo,
		db:             cfg.DB,
		clock:          clock,
		idGen:          idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.PortfolioRepository      = (*Repository)(nil)
)

// ListPortfolios returns the owner's portfolios, oldest first.
func (r *Repository) ListPortfolios(ctx context.Context, owner uuid.UUID) ([]document.Portfolio, error) {
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("owner_id = ?", owner).OrderExpr("created_at ASC, id ASC")
	})
	if err != nil {
		return nil, err
	}
	out := make([]document.Portfolio, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToPortfolio(row))
	}
	return out, nil
}

// GetPortfolio loads a portfolio by id.
func (r *Repository) GetPortfolio(ctx context.Context, id uuid.UUID) (*document.Portfolio, error) {
	if id == uuid.Nil {
		return nil, types.ErrPortfolioIDRequired
	}
	rec, err := r.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrPortfolioNotFound
		}
		return nil, err
	}
	p := ToPortfolio(rec)
	return &p, nil
}

// CountPortfolios returns how many portfolios the owner holds.
func (r *Repository) CountPortfolios(ctx context.Context, owner uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*Record)(nil)).
		Where("owner_id = ?", owner).
		Count(ctx)
}

const seedCounterSQL = `INSERT INTO portfolio_owners (owner_id, portfolio_count, updated_at)
SELECT ?, COUNT(*), ? FROM portfolios WHERE owner_id = ?
ON CONFLICT (owner_id) DO NOTHING`

// CreatePortfolio claims a slot on the owner's counter row and inserts the
// portfolio in the same transaction. The conditional update on the counter
// row serializes concurrent creators for one owner, so two requests can
// never both pass the limit. A negative limit disables the check.
func (r *Repository) CreatePortfolio(ctx context.Context, p document.Portfolio, limit int) (*document.Portfolio, error) {
	if p.OwnerID == uuid.Nil {
		return nil, document.Invalid("ownerId", "owner is required")
	}
	now := r.clock.Now()
	if p.ID == uuid.Nil {
		p.ID = r.idGen.UUID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	record := FromPortfolio(p)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, seedCounterSQL, p.OwnerID, now, p.OwnerID); err != nil {
			return err
		}
		claim := tx.NewUpdate().
			Table("portfolio_owners").
			Set("portfolio_count = portfolio_count + 1").
			Set("updated_at = ?", now).
			Where("owner_id = ?", p.OwnerID)
		if limit >= 0 {
			claim = claim.Where("portfolio_count < ?", limit)
		}
		res, err := claim.Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return types.ErrQuotaExceeded
		}
		_, err = tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	created := ToPortfolio(record)
	return &created, nil
}

// SavePortfolio persists a mutated document. Identity, owner and creation
// time are taken from the stored row.
func (r *Repository) SavePortfolio(ctx context.Context, p document.Portfolio) (*document.Portfolio, error) {
	if p.ID == uuid.Nil {
		return nil, types.ErrPortfolioIDRequired
	}
	record := FromPortfolio(p)
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = r.clock.Now()
	}
	res, err := r.db.NewUpdate().
		Model(record).
		ExcludeColumn("owner_id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, types.ErrPortfolioNotFound
	}
	return r.GetPortfolio(ctx, p.ID)
}

// DeletePortfolio removes the portfolio and releases its counter slot.
func (r *Repository) DeletePortfolio(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return types.ErrPortfolioIDRequired
	}
	now := r.clock.Now()
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rec := new(Record)
		err := tx.NewSelect().Model(rec).Where("id = ?", id).Limit(1).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrPortfolioNotFound
			}
			return err
		}
		if _, err := tx.NewDelete().Model((*Record)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Table("portfolio_owners").
			Set("portfolio_count = portfolio_count - 1").
			Set("updated_at = ?", now).
			Where("owner_id = ?", rec.OwnerID).
			Where("portfolio_count > 0").
			Exec(ctx)
		return err
	})
}
