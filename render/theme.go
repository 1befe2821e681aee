package render

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	opts "github.com/goliatone/go-options"
	"github.com/goliatone/go-portfolio/document"
	"gopkg.in/yaml.v3"
)

//go:embed themes
var themeFiles embed.FS

const manifestName = "themes.yaml"

var (
	variableName    = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	unsafeCSSValues = "{};<>\\"
)

// Theme is one entry of the theme catalogue: a base stylesheet plus the
// default values of the CSS custom properties it reads.
type Theme struct {
	Name        string            `yaml:"name"`
	Label       string            `yaml:"label"`
	Description string            `yaml:"description"`
	Stylesheet  string            `yaml:"stylesheet"`
	Variables   map[string]string `yaml:"variables"`

	base string
}

// Base returns the theme stylesheet without the variables block.
func (t Theme) Base() string {
	return t.base
}

type manifest struct {
	Themes []Theme `yaml:"themes"`
}

// Catalogue holds the available themes keyed by template name. It is
// read-only after loading.
type Catalogue struct {
	themes map[string]Theme
	names  []string
}

var _ document.ThemeCatalogue = (*Catalogue)(nil)

// DefaultCatalogue loads the embedded modern, minimal and classic themes.
func DefaultCatalogue() (*Catalogue, error) {
	sub, err := fs.Sub(themeFiles, "themes")
	if err != nil {
		return nil, err
	}
	return LoadCatalogue(sub)
}

// LoadCatalogue reads themes.yaml and the stylesheets it names from fsys.
func LoadCatalogue(fsys fs.FS) (*Catalogue, error) {
	raw, err := fs.ReadFile(fsys, manifestName)
	if err != nil {
		return nil, fmt.Errorf("go-portfolio: read theme manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("go-portfolio: parse theme manifest: %w", err)
	}
	if len(m.Themes) == 0 {
		return nil, fmt.Errorf("go-portfolio: theme manifest lists no themes")
	}
	catalogue := &Catalogue{themes: make(map[string]Theme, len(m.Themes))}
	for _, theme := range m.Themes {
		theme.Name = strings.TrimSpace(theme.Name)
		if theme.Name == "" {
			return nil, fmt.Errorf("go-portfolio: theme without name")
		}
		if _, dup := catalogue.themes[theme.Name]; dup {
			return nil, fmt.Errorf("go-portfolio: duplicate theme %q", theme.Name)
		}
		for key, value := range theme.Variables {
			if !variableName.MatchString(key) || strings.ContainsAny(value, unsafeCSSValues) {
				return nil, fmt.Errorf("go-portfolio: theme %q has invalid variable %q", theme.Name, key)
			}
		}
		css, err := fs.ReadFile(fsys, theme.Stylesheet)
		if err != nil {
			return nil, fmt.Errorf("go-portfolio: theme %q stylesheet: %w", theme.Name, err)
		}
		theme.base = string(css)
		catalogue.themes[theme.Name] = theme
		catalogue.names = append(catalogue.names, theme.Name)
	}
	sort.Strings(catalogue.names)
	return catalogue, nil
}

// HasTheme implements document.ThemeCatalogue.
func (c *Catalogue) HasTheme(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.themes[name]
	return ok
}

// Theme returns the named theme.
func (c *Catalogue) Theme(name string) (Theme, bool) {
	theme, ok := c.themes[name]
	return theme, ok
}

// Names lists the theme names in lexical order.
func (c *Catalogue) Names() []string {
	return append([]string(nil), c.names...)
}

// ResolveVariables layers the portfolio settings over the theme defaults and
// returns the effective custom properties.
func (t Theme) ResolveVariables(settings document.Settings) (map[string]any, error) {
	defaults := make(map[string]any, len(t.Variables))
	for key, value := range t.Variables {
		defaults[key] = value
	}
	overrides := make(map[string]any, 3)
	if settings.PrimaryColor != "" {
		overrides["color-primary"] = settings.PrimaryColor
	}
	if settings.SecondaryColor != "" {
		overrides["color-secondary"] = settings.SecondaryColor
	}
	if settings.FontFamily != "" {
		overrides["font-family"] = settings.FontFamily
	}

	themeScope := opts.NewScope("theme", opts.ScopePrioritySystem,
		opts.WithScopeLabel(t.Label),
		opts.WithScopeMetadata(map[string]any{"theme": t.Name}))
	settingsScope := opts.NewScope("settings", opts.ScopePriorityUser,
		opts.WithScopeLabel("Portfolio settings"))

	stack, err := opts.NewStack(
		opts.NewLayer(themeScope, defaults, opts.WithSnapshotID[map[string]any](themeScope.Name)),
		opts.NewLayer(settingsScope, overrides, opts.WithSnapshotID[map[string]any](settingsScope.Name)),
	)
	if err != nil {
		return nil, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, err
	}
	return merged.Value, nil
}

// CSS renders styles.css: a :root block with the effective variables
// in key order followed by the theme's base stylesheet.
func (t Theme) CSS(settings document.Settings) ([]byte, error) {
	vars, err := t.ResolveVariables(settings)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "/* theme: %s */\n:root {\n", t.Name)
	for _, key := range keys {
		fmt.Fprintf(&b, "  --%s: %v;\n", key, vars[key])
	}
	b.WriteString("}\n\n")
	b.WriteString(t.base)
	return []byte(b.String()), nil
}
