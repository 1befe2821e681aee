package document

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SectionType discriminates the closed set of section variants.
type SectionType string

const (
	SectionHero         SectionType = "hero"
	SectionAbout        SectionType = "about"
	SectionProjects     SectionType = "projects"
	SectionSkills       SectionType = "skills"
	SectionContact      SectionType = "contact"
	SectionTestimonials SectionType = "testimonials"
)

// SectionTypes returns every supported section type in catalogue order.
func SectionTypes() []SectionType {
	return []SectionType{
		SectionHero,
		SectionAbout,
		SectionProjects,
		SectionSkills,
		SectionContact,
		SectionTestimonials,
	}
}

// Known reports whether the type belongs to the section catalogue.
func (t SectionType) Known() bool {
	switch t {
	case SectionHero, SectionAbout, SectionProjects, SectionSkills, SectionContact, SectionTestimonials:
		return true
	default:
		return false
	}
}

// SocialPlatform names a social network accepted in PortfolioSettings.
type SocialPlatform string

const (
	SocialTwitter   SocialPlatform = "twitter"
	SocialLinkedIn  SocialPlatform = "linkedin"
	SocialGitHub    SocialPlatform = "github"
	SocialInstagram SocialPlatform = "instagram"
)

// SocialPlatforms returns the accepted platforms in render order.
func SocialPlatforms() []SocialPlatform {
	return []SocialPlatform{SocialTwitter, SocialLinkedIn, SocialGitHub, SocialInstagram}
}

// Known reports whether the platform is part of the fixed set.
func (p SocialPlatform) Known() bool {
	switch p {
	case SocialTwitter, SocialLinkedIn, SocialGitHub, SocialInstagram:
		return true
	default:
		return false
	}
}

// Settings is the visual and SEO configuration embedded in a portfolio.
type Settings struct {
	PrimaryColor   string                    `json:"primaryColor"`
	SecondaryColor string                    `json:"secondaryColor"`
	FontFamily     string                    `json:"fontFamily"`
	LogoURL        string                    `json:"logoUrl,omitempty"`
	Favicon        string                    `json:"favicon,omitempty"`
	SEOTitle       string                    `json:"seoTitle"`
	SEODescription string                    `json:"seoDescription"`
	SocialLinks    map[SocialPlatform]string `json:"socialLinks,omitempty"`
}

// Section is a typed, orderable content block. It only exists inside its
// parent portfolio; the id is unique within that portfolio alone.
type Section struct {
	ID      string         `json:"id"`
	Type    SectionType    `json:"type"`
	Title   string         `json:"title"`
	Content map[string]any `json:"content"`
	Order   int            `json:"order"`
	Visible bool           `json:"isVisible"`
}

// Portfolio is the root document describing one user-authored website.
type Portfolio struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Template     string    `json:"template"`
	CustomDomain string    `json:"customDomain,omitempty"`
	Published    bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Settings     Settings  `json:"settings"`
	Sections     []Section `json:"sections"`
}

// Clone returns a deep copy so callers can mutate the result without
// touching the receiver (content maps included).
func (p Portfolio) Clone() Portfolio {
	out := p
	out.Settings = p.Settings.Clone()
	if p.Sections != nil {
		out.Sections = make([]Section, len(p.Sections))
		for i, section := range p.Sections {
			out.Sections[i] = section.Clone()
		}
	}
	return out
}

// Clone returns a copy of the settings with the social link map detached.
func (s Settings) Clone() Settings {
	out := s
	if s.SocialLinks != nil {
		out.SocialLinks = make(map[SocialPlatform]string, len(s.SocialLinks))
		for k, v := range s.SocialLinks {
			out.SocialLinks[k] = v
		}
	}
	return out
}

// Clone returns a copy of the section with its content deep copied.
func (s Section) Clone() Section {
	out := s
	out.Content = CloneContent(s.Content)
	return out
}

// Section looks up a section by id.
func (p Portfolio) Section(id string) (Section, bool) {
	for _, section := range p.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return Section{}, false
}

// VisibleSections returns the visible sections sorted by (order, id).
func (p Portfolio) VisibleSections() []Section {
	out := make([]Section, 0, len(p.Sections))
	for _, section := range p.Sections {
		if section.Visible {
			out = append(out, section)
		}
	}
	SortSections(out)
	return out
}

// HasVisibleSection reports whether at least one section would render.
func (p Portfolio) HasVisibleSection() bool {
	for _, section := range p.Sections {
		if section.Visible {
			return true
		}
	}
	return false
}

// IsPublished mirrors the Published flag for readability at call sites.
func (p Portfolio) IsPublished() bool {
	return p.Published
}

// SortSections orders sections in place by (order, id).
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Order != sections[j].Order {
			return sections[i].Order < sections[j].Order
		}
		return sections[i].ID < sections[j].ID
	})
}

// CloneContent deep copies a raw content payload. Unknown nested values are
// copied structurally so extra fields survive untouched.
func CloneContent(content map[string]any) map[string]any {
	if content == nil {
		return nil
	}
	out := make(map[string]any, len(content))
	for k, v := range content {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneContent(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = CloneContent(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}
