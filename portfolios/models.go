package portfolios

import (
	"time"

	"github.com/goliatone/go-portfolio/document"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the portfolios row. Settings and sections are stored as
// JSON documents so unknown section fields survive persistence.
type Record struct {
	bun.BaseModel `bun:"table:portfolios"`

	ID           uuid.UUID          `bun:"id,pk,type:uuid"`
	OwnerID      uuid.UUID          `bun:"owner_id,type:uuid"`
	Title        string             `bun:"title"`
	Description  string             `bun:"description"`
	Template     string             `bun:"template"`
	CustomDomain string             `bun:"custom_domain"`
	IsPublished  bool               `bun:"is_published"`
	Settings     document.Settings  `bun:"settings,type:jsonb"`
	Sections     []document.Section `bun:"sections,type:jsonb"`
	CreatedAt    time.Time          `bun:"created_at"`
	UpdatedAt    time.Time          `bun:"updated_at"`
}

// OwnerCounter models the portfolio_owners row that serializes
// count-and-create per owner.
type OwnerCounter struct {
	bun.BaseModel `bun:"table:portfolio_owners"`

	OwnerID        uuid.UUID `bun:"owner_id,pk,type:uuid"`
	PortfolioCount int       `bun:"portfolio_count"`
	UpdatedAt      time.Time `bun:"updated_at"`
}

// FromPortfolio converts a document into the Bun model.
func FromPortfolio(p document.Portfolio) *Record {
	p = p.Clone()
	sections := p.Sections
	if sections == nil {
		sections = []document.Section{}
	}
	return &Record{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Description:  p.Description,
		Template:     p.Template,
		CustomDomain: p.CustomDomain,
		IsPublished:  p.Published,
		Settings:     p.Settings,
		Sections:     sections,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ToPortfolio converts the Bun model into a document.
func ToPortfolio(rec *Record) document.Portfolio {
	if rec == nil {
		return document.Portfolio{}
	}
	p := document.Portfolio{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		Title:        rec.Title,
		Description:  rec.Description,
		Template:     rec.Template,
		CustomDomain: rec.CustomDomain,
		Published:    rec.IsPublished,
		CreatedAt:    rec.CreatedAt.UTC(),
		UpdatedAt:    rec.UpdatedAt.UTC(),
		Settings:     rec.Settings,
		Sections:     rec.Sections,
	}
	return p.Clone()
}
