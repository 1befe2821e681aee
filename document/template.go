package document

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTemplate is the theme assigned to new portfolios.
const DefaultTemplate = "modern"

// DefaultSettings returns the settings seeded into a new portfolio.
func DefaultSettings() Settings {
	return Settings{
		PrimaryColor:   "#2563eb",
		SecondaryColor: "#7c3aed",
		FontFamily:     "Inter",
		SEOTitle:       "My Portfolio",
		SEODescription: "Welcome to my portfolio",
		SocialLinks:    nil,
	}
}

// DefaultSections returns the hero, about and empty projects sections that
// every new portfolio starts with.
func DefaultSections() []Section {
	return []Section{
		{
			ID:    "hero-1",
			Type:  SectionHero,
			Title: "Hero",
			Content: map[string]any{
				"title":    "Welcome to My Portfolio",
				"subtitle": "I create amazing digital experiences",
				"ctaText":  "Get In Touch",
				"ctaLink":  "#contact",
			},
			Order:   1,
			Visible: true,
		},
		{
			ID:    "about-1",
			Type:  SectionAbout,
			Title: "About",
			Content: map[string]any{
				"description": "I am a passionate developer with expertise in modern web technologies.",
				"image":       "",
			},
			Order:   2,
			Visible: true,
		},
		{
			ID:    "projects-1",
			Type:  SectionProjects,
			Title: "Projects",
			Content: map[string]any{
				"projects": []any{},
			},
			Order:   3,
			Visible: true,
		},
	}
}

// NewDefault builds the draft document used by the create path. The id is
// left empty; persistence assigns it.
func NewDefault(owner uuid.UUID, now time.Time) Portfolio {
	return Portfolio{
		OwnerID:     owner,
		Title:       "My Portfolio",
		Description: "A beautiful portfolio website",
		Template:    DefaultTemplate,
		Published:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
		Settings:    DefaultSettings(),
		Sections:    DefaultSections(),
	}
}
