package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ContentValidator validates a raw content payload for a section type.
type ContentValidator interface {
	Validate(t SectionType, content map[string]any) error
}

// ThemeCatalogue reports whether a template name resolves to a theme.
type ThemeCatalogue interface {
	HasTheme(name string) bool
}

// Rules carries the optional collaborators consulted while applying
// mutations. Nil members skip the corresponding check.
type Rules struct {
	Content ContentValidator
	Themes  ThemeCatalogue
}

// Mutation is a single edit applied to a portfolio. The set is closed.
type Mutation interface {
	Kind() string
	apply(p *Portfolio, rules Rules) error
}

// Apply runs the mutations against a clone of p, validates the result and
// returns it with UpdatedAt refreshed. On any failure the original is
// returned untouched together with the error.
func Apply(p Portfolio, now time.Time, rules Rules, mutations ...Mutation) (Portfolio, error) {
	if len(mutations) == 0 {
		return p, Invalid("mutations", "at least one mutation is required")
	}
	next := p.Clone()
	for _, mutation := range mutations {
		if mutation == nil {
			return p, Invalid("mutations", "nil mutation")
		}
		if err := mutation.apply(&next, rules); err != nil {
			return p, err
		}
	}
	if err := next.Validate(); err != nil {
		return p, err
	}
	next.UpdatedAt = now
	return next, nil
}

// Rename sets the portfolio title.
type Rename struct {
	Title string
}

func (Rename) Kind() string { return "rename" }

func (m Rename) apply(p *Portfolio, _ Rules) error {
	p.Title = strings.TrimSpace(m.Title)
	return nil
}

// SetDescription replaces the portfolio description.
type SetDescription struct {
	Description string
}

func (SetDescription) Kind() string { return "set_description" }

func (m SetDescription) apply(p *Portfolio, _ Rules) error {
	p.Description = m.Description
	return nil
}

// SetTemplate switches the theme used for rendering.
type SetTemplate struct {
	Template string
}

func (SetTemplate) Kind() string { return "set_template" }

func (m SetTemplate) apply(p *Portfolio, rules Rules) error {
	name := strings.TrimSpace(m.Template)
	if name == "" {
		return Invalid("template", "template is required")
	}
	if rules.Themes != nil && !rules.Themes.HasTheme(name) {
		return Invalid("template", fmt.Sprintf("unknown template %q", name))
	}
	p.Template = name
	return nil
}

// SetCustomDomain sets or clears the domain recorded in bundle metadata.
type SetCustomDomain struct {
	Domain string
}

func (SetCustomDomain) Kind() string { return "set_custom_domain" }

func (m SetCustomDomain) apply(p *Portfolio, _ Rules) error {
	p.CustomDomain = strings.ToLower(strings.TrimSpace(m.Domain))
	return nil
}

// SettingsPatch lists the settings fields to overwrite. Nil members are left
// alone; a non-nil SocialLinks map replaces the links wholesale and entries
// with an empty URL are dropped.
type SettingsPatch struct {
	PrimaryColor   *string                   `json:"primaryColor,omitempty"`
	SecondaryColor *string                   `json:"secondaryColor,omitempty"`
	FontFamily     *string                   `json:"fontFamily,omitempty"`
	LogoURL        *string                   `json:"logoUrl,omitempty"`
	Favicon        *string                   `json:"favicon,omitempty"`
	SEOTitle       *string                   `json:"seoTitle,omitempty"`
	SEODescription *string                   `json:"seoDescription,omitempty"`
	SocialLinks    map[SocialPlatform]string `json:"socialLinks,omitempty"`
}

// UpdateSettings applies a SettingsPatch.
type UpdateSettings struct {
	Patch SettingsPatch
}

func (UpdateSettings) Kind() string { return "update_settings" }

func (m UpdateSettings) apply(p *Portfolio, _ Rules) error {
	s := &p.Settings
	patch := m.Patch
	if patch.PrimaryColor != nil {
		s.PrimaryColor = strings.TrimSpace(*patch.PrimaryColor)
	}
	if patch.SecondaryColor != nil {
		s.SecondaryColor = strings.TrimSpace(*patch.SecondaryColor)
	}
	if patch.FontFamily != nil {
		s.FontFamily = strings.TrimSpace(*patch.FontFamily)
	}
	if patch.LogoURL != nil {
		s.LogoURL = strings.TrimSpace(*patch.LogoURL)
	}
	if patch.Favicon != nil {
		s.Favicon = strings.TrimSpace(*patch.Favicon)
	}
	if patch.SEOTitle != nil {
		s.SEOTitle = *patch.SEOTitle
	}
	if patch.SEODescription != nil {
		s.SEODescription = *patch.SEODescription
	}
	if patch.SocialLinks != nil {
		links := make(map[SocialPlatform]string, len(patch.SocialLinks))
		for platform, link := range patch.SocialLinks {
			link = strings.TrimSpace(link)
			if link == "" {
				continue
			}
			links[platform] = link
		}
		if len(links) == 0 {
			links = nil
		}
		s.SocialLinks = links
	}
	return nil
}

// AddSection appends a section. A zero Order places it after the last one.
type AddSection struct {
	Section Section
}

func (AddSection) Kind() string { return "add_section" }

func (m AddSection) apply(p *Portfolio, rules Rules) error {
	section := m.Section.Clone()
	section.ID = strings.TrimSpace(section.ID)
	if section.ID == "" {
		return Invalid("sections.id", "section id is required")
	}
	if !section.Type.Known() {
		return InvalidSection(section.ID, "sections.type", fmt.Sprintf("unknown section type %q", section.Type))
	}
	if _, exists := p.Section(section.ID); exists {
		return InvalidSection(section.ID, "sections.id", "duplicate section id")
	}
	if section.Content == nil {
		section.Content = map[string]any{}
	}
	if rules.Content != nil {
		if err := rules.Content.Validate(section.Type, section.Content); err != nil {
			return scopeToSection(err, section.ID)
		}
	}
	if section.Order == 0 {
		section.Order = maxOrder(p.Sections) + 1
	}
	p.Sections = append(p.Sections, section)
	return nil
}

// RemoveSection deletes a section by id.
type RemoveSection struct {
	ID string
}

func (RemoveSection) Kind() string { return "remove_section" }

func (m RemoveSection) apply(p *Portfolio, _ Rules) error {
	idx := indexOf(p.Sections, m.ID)
	if idx < 0 {
		return InvalidSection(m.ID, "sections", "section not found")
	}
	p.Sections = append(p.Sections[:idx], p.Sections[idx+1:]...)
	return nil
}

// UpdateSection replaces a section title and/or content. Nil members are
// left alone; content is replaced as a whole, unknown keys included.
type UpdateSection struct {
	ID      string
	Title   *string
	Content map[string]any
}

func (UpdateSection) Kind() string { return "update_section" }

func (m UpdateSection) apply(p *Portfolio, rules Rules) error {
	idx := indexOf(p.Sections, m.ID)
	if idx < 0 {
		return InvalidSection(m.ID, "sections", "section not found")
	}
	section := &p.Sections[idx]
	if m.Title != nil {
		section.Title = *m.Title
	}
	if m.Content != nil {
		content := CloneContent(m.Content)
		if rules.Content != nil {
			if err := rules.Content.Validate(section.Type, content); err != nil {
				return scopeToSection(err, section.ID)
			}
		}
		section.Content = content
	}
	return nil
}

// SetSectionVisibility shows or hides a section without removing it.
type SetSectionVisibility struct {
	ID      string
	Visible bool
}

func (SetSectionVisibility) Kind() string { return "set_section_visibility" }

func (m SetSectionVisibility) apply(p *Portfolio, _ Rules) error {
	idx := indexOf(p.Sections, m.ID)
	if idx < 0 {
		return InvalidSection(m.ID, "sections", "section not found")
	}
	p.Sections[idx].Visible = m.Visible
	return nil
}

// ReorderSections assigns new order values to a subset of sections. The
// resulting sequence sorts by order, then assigned-before-unassigned, then
// id, and is renumbered 1..n.
type ReorderSections struct {
	Orders map[string]int
}

func (ReorderSections) Kind() string { return "reorder_sections" }

func (m ReorderSections) apply(p *Portfolio, _ Rules) error {
	if len(m.Orders) == 0 {
		return Invalid("sections.order", "no order assignments supplied")
	}
	ids := make([]string, 0, len(m.Orders))
	for id := range m.Orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if indexOf(p.Sections, id) < 0 {
			return InvalidSection(id, "sections.order", "section not found")
		}
	}
	for i := range p.Sections {
		if order, ok := m.Orders[p.Sections[i].ID]; ok {
			p.Sections[i].Order = order
		}
	}
	sort.SliceStable(p.Sections, func(i, j int) bool {
		a, b := p.Sections[i], p.Sections[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		_, aMoved := m.Orders[a.ID]
		_, bMoved := m.Orders[b.ID]
		if aMoved != bMoved {
			return aMoved
		}
		return a.ID < b.ID
	})
	for i := range p.Sections {
		p.Sections[i].Order = i + 1
	}
	return nil
}

func indexOf(sections []Section, id string) int {
	for i, section := range sections {
		if section.ID == id {
			return i
		}
	}
	return -1
}

func maxOrder(sections []Section) int {
	out := 0
	for _, section := range sections {
		if section.Order > out {
			out = section.Order
		}
	}
	return out
}

func scopeToSection(err error, sectionID string) error {
	if verr, ok := err.(*ValidationError); ok && verr.SectionID == "" {
		scoped := *verr
		scoped.SectionID = sectionID
		return &scoped
	}
	return err
}

type mutationEnvelope struct {
	Kind        string         `json:"kind"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Template    string         `json:"template,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Settings    *SettingsPatch `json:"settings,omitempty"`
	Section     *Section       `json:"section,omitempty"`
	ID          string         `json:"id,omitempty"`
	Content     map[string]any `json:"content,omitempty"`
	Visible     *bool          `json:"isVisible,omitempty"`
	Orders      map[string]int `json:"orders,omitempty"`
}

// DecodeMutation parses a {"kind": ...} JSON envelope into a Mutation.
func DecodeMutation(data []byte) (Mutation, error) {
	var env mutationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Invalid("mutation", "malformed mutation payload")
	}
	switch env.Kind {
	case Rename{}.Kind():
		if env.Title == nil {
			return nil, Invalid("title", "title is required")
		}
		return Rename{Title: *env.Title}, nil
	case SetDescription{}.Kind():
		if env.Description == nil {
			return nil, Invalid("description", "description is required")
		}
		return SetDescription{Description: *env.Description}, nil
	case SetTemplate{}.Kind():
		return SetTemplate{Template: env.Template}, nil
	case SetCustomDomain{}.Kind():
		return SetCustomDomain{Domain: env.Domain}, nil
	case UpdateSettings{}.Kind():
		if env.Settings == nil {
			return nil, Invalid("settings", "settings patch is required")
		}
		return UpdateSettings{Patch: *env.Settings}, nil
	case AddSection{}.Kind():
		if env.Section == nil {
			return nil, Invalid("section", "section is required")
		}
		return AddSection{Section: *env.Section}, nil
	case RemoveSection{}.Kind():
		return RemoveSection{ID: env.ID}, nil
	case UpdateSection{}.Kind():
		return UpdateSection{ID: env.ID, Title: env.Title, Content: env.Content}, nil
	case SetSectionVisibility{}.Kind():
		if env.Visible == nil {
			return nil, InvalidSection(env.ID, "isVisible", "visibility is required")
		}
		return SetSectionVisibility{ID: env.ID, Visible: *env.Visible}, nil
	case ReorderSections{}.Kind():
		return ReorderSections{Orders: env.Orders}, nil
	default:
		return nil, Invalid("kind", fmt.Sprintf("unknown mutation kind %q", env.Kind))
	}
}

// DecodeMutations parses a JSON array of mutation envelopes.
func DecodeMutations(data []byte) ([]Mutation, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Invalid("mutations", "expected an array of mutations")
	}
	out := make([]Mutation, 0, len(raw))
	for _, item := range raw {
		mutation, err := DecodeMutation(item)
		if err != nil {
			return nil, err
		}
		out = append(out, mutation)
	}
	return out, nil
}

// Kinds returns the kinds of the supplied mutations in order.
func Kinds(mutations []Mutation) []string {
	out := make([]string, 0, len(mutations))
	for _, mutation := range mutations {
		if mutation == nil {
			continue
		}
		out = append(out, mutation.Kind())
	}
	return out
}
