package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/section"
)

//go:embed templates/*.html
var templateFiles embed.FS

// RenderError reports that a document cannot be rendered at all.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("go-portfolio: render failed: %s: %v", e.Reason, e.Err)
	}
	return "go-portfolio: render failed: " + e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }

// Warning is a non-fatal problem found while rendering or packing.
type Warning struct {
	SectionID string `json:"sectionId,omitempty"`
	Message   string `json:"message"`
}

func (w Warning) String() string {
	if w.SectionID == "" {
		return w.Message
	}
	return fmt.Sprintf("section %s: %s", w.SectionID, w.Message)
}

// Fragment is the markup produced for one visible section.
type Fragment struct {
	SectionID string
	Type      document.SectionType
	HTML      string
	// Empty marks a section whose content produced no items or text.
	Empty bool
}

// Result is the output of Render.
type Result struct {
	Files     OrderedFileSet
	Fragments []Fragment
	Warnings  []Warning
}

// Engine turns portfolios into static files. It holds only immutable state
// and is safe for concurrent use.
type Engine struct {
	registry *section.Registry
	themes   *Catalogue
	page     *template.Template
	sections *template.Template
}

var _ document.ThemeCatalogue = (*Engine)(nil)

// NewEngine parses the embedded templates. A nil registry uses
// section.NewRegistry; a nil catalogue loads DefaultCatalogue.
func NewEngine(registry *section.Registry, themes *Catalogue) (*Engine, error) {
	if registry == nil {
		registry = section.NewRegistry()
	}
	if themes == nil {
		loaded, err := DefaultCatalogue()
		if err != nil {
			return nil, err
		}
		themes = loaded
	}
	page, err := template.ParseFS(templateFiles, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("go-portfolio: parse page template: %w", err)
	}
	sections, err := template.ParseFS(templateFiles, "templates/sections.html")
	if err != nil {
		return nil, fmt.Errorf("go-portfolio: parse section templates: %w", err)
	}
	return &Engine{registry: registry, themes: themes, page: page, sections: sections}, nil
}

// Themes exposes the catalogue used by the engine.
func (e *Engine) Themes() *Catalogue {
	return e.themes
}

// HasTheme implements document.ThemeCatalogue.
func (e *Engine) HasTheme(name string) bool {
	return e.themes.HasTheme(name)
}

// Option customizes a single Render call.
type Option func(*options)

type options struct {
	link AssetLinker
}

// WithAssetLinks writes link(asset) into the markup instead of the bundle
// path, for previews served outside an archive.
func WithAssetLinks(link AssetLinker) Option {
	return func(o *options) {
		if link != nil {
			o.link = link
		}
	}
}

// DryRun renders p and discards the output.
func (e *Engine) DryRun(p document.Portfolio) error {
	_, err := e.Render(p)
	return err
}

// Render produces index.html, styles.css and the asset entries for p. It
// never mutates p and returns identical output for identical input.
func (e *Engine) Render(p document.Portfolio, opts ...Option) (Result, error) {
	o := options{link: BundleLink}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if strings.TrimSpace(p.Title) == "" {
		return Result{}, &RenderError{Reason: "title is required", Err: document.Invalid("title", "title is required")}
	}
	theme, ok := e.themes.Theme(p.Template)
	if !ok {
		return Result{}, &RenderError{Reason: fmt.Sprintf("unknown template %q", p.Template), Err: document.Invalid("template", "unknown template")}
	}
	if err := p.Validate(); err != nil {
		return Result{}, &RenderError{Reason: "invalid document", Err: err}
	}

	assets := newAssetTable(o.link)
	view := pageView{
		Title:          p.Title,
		PageTitle:      firstNonEmpty(p.Settings.SEOTitle, p.Title),
		SEODescription: firstNonEmpty(p.Settings.SEODescription, p.Description),
		Description:    p.Description,
		Theme:          theme.Name,
		Favicon:        assets.ref(p.Settings.Favicon, assetSlot{}),
		Logo:           assets.ref(p.Settings.LogoURL, assetSlot{}),
		Social:         socialLinks(p.Settings),
	}

	var (
		fragments []Fragment
		warnings  []Warning
	)
	for i, sec := range p.VisibleSections() {
		idx := i + 1
		content, err := e.registry.Decode(sec.Type, sec.Content)
		if err != nil {
			warnings = append(warnings, Warning{SectionID: sec.ID, Message: sectionProblem(sec, err)})
			continue
		}
		mark := assets.mark()
		fragment, err := e.renderSection(sec, content, assets, assetSlot{index: idx, sectionID: sec.ID})
		if err != nil {
			assets.rollback(mark, idx)
			warnings = append(warnings, Warning{SectionID: sec.ID, Message: err.Error()})
			continue
		}
		fragments = append(fragments, fragment)
		view.Sections = append(view.Sections, template.HTML(fragment.HTML))
		if sec.Type != document.SectionHero {
			view.Nav = append(view.Nav, navItem{ID: sec.ID, Label: heading(sec, e.registry)})
		}
	}

	var markup bytes.Buffer
	if err := e.page.Execute(&markup, view); err != nil {
		return Result{}, &RenderError{Reason: "page template failed", Err: err}
	}
	css, err := theme.CSS(p.Settings)
	if err != nil {
		return Result{}, &RenderError{Reason: "theme variables failed", Err: err}
	}

	files := make(OrderedFileSet, 0, 2+len(assets.files))
	files = append(files,
		File{Path: IndexPath, Kind: FileMarkup, Content: markup.Bytes()},
		File{Path: StylesheetPath, Kind: FileStylesheet, Content: css},
	)
	files = append(files, assets.files...)
	return Result{Files: files, Fragments: fragments, Warnings: warnings}, nil
}

func sectionProblem(sec document.Section, err error) string {
	if !sec.Type.Known() {
		return fmt.Sprintf("skipped: unknown section type %q", sec.Type)
	}
	return "skipped: " + err.Error()
}

func heading(sec document.Section, registry *section.Registry) string {
	if title := strings.TrimSpace(sec.Title); title != "" {
		return title
	}
	if def, ok := registry.Definition(sec.Type); ok {
		return def.Label
	}
	return sec.ID
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

var socialLabels = map[document.SocialPlatform]string{
	document.SocialTwitter:   "Twitter",
	document.SocialLinkedIn:  "LinkedIn",
	document.SocialGitHub:    "GitHub",
	document.SocialInstagram: "Instagram",
}

func socialLinks(settings document.Settings) []socialLink {
	var out []socialLink
	for _, platform := range document.SocialPlatforms() {
		link := strings.TrimSpace(settings.SocialLinks[platform])
		if link == "" {
			continue
		}
		out = append(out, socialLink{Label: socialLabels[platform], URL: template.URL(link)})
	}
	return out
}
