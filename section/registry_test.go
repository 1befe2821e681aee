package section

import (
	"testing"

	"github.com/goliatone/go-portfolio/document"
	"github.com/stretchr/testify/require"
)

func TestRegistryCoversCatalogue(t *testing.T) {
	registry := NewRegistry()
	for _, sectionType := range document.SectionTypes() {
		def, ok := registry.Definition(sectionType)
		require.True(t, ok, sectionType)
		require.NotEmpty(t, def.Fields)

		content, err := registry.Decode(sectionType, nil)
		require.NoError(t, err)
		require.Equal(t, sectionType, content.SectionType())
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := NewRegistry().Decode("gallery", map[string]any{})
	require.ErrorIs(t, err, document.ErrValidation)
}

func TestDefaultSectionsValidate(t *testing.T) {
	registry := NewRegistry()
	for _, section := range document.DefaultSections() {
		require.NoError(t, registry.Validate(section.Type, section.Content), section.ID)
	}
}

func TestDecodeIgnoresUnknownFieldsAndKeepsRaw(t *testing.T) {
	raw := map[string]any{"title": "Hello", "x_custom": []any{"a"}}

	content, err := NewRegistry().Decode(document.SectionHero, raw)
	require.NoError(t, err)
	require.Equal(t, HeroContent{Title: "Hello"}, content)
	require.Equal(t, []any{"a"}, raw["x_custom"])
}

func TestDecodeTypeMismatchNamesField(t *testing.T) {
	_, err := NewRegistry().Decode(document.SectionProjects, map[string]any{"projects": "nope"})

	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "content.projects", verr.Field)
}

func TestSkillLevelBounds(t *testing.T) {
	registry := NewRegistry()
	ok := map[string]any{"skills": []any{map[string]any{"name": "Go", "level": 100}}}
	require.NoError(t, registry.Validate(document.SectionSkills, ok))

	bad := map[string]any{"skills": []any{
		map[string]any{"name": "Go", "level": 90},
		map[string]any{"name": "Rust", "level": 101},
	}}
	var verr *document.ValidationError
	require.ErrorAs(t, registry.Validate(document.SectionSkills, bad), &verr)
	require.Equal(t, "content.skills[1].level", verr.Field)
}

func TestTestimonialRatingBounds(t *testing.T) {
	bad := map[string]any{"testimonials": []any{map[string]any{"name": "Ana", "rating": 6}}}

	var verr *document.ValidationError
	require.ErrorAs(t, NewRegistry().Validate(document.SectionTestimonials, bad), &verr)
	require.Equal(t, "content.testimonials[0].rating", verr.Field)
}

func TestContactEmail(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Validate(document.SectionContact, map[string]any{"email": "me@example.com"}))
	require.NoError(t, registry.Validate(document.SectionContact, map[string]any{"phone": "+1 555"}))

	var verr *document.ValidationError
	require.ErrorAs(t, registry.Validate(document.SectionContact, map[string]any{"email": "not-an-email"}), &verr)
	require.Equal(t, "content.email", verr.Field)
}

func TestLinksRejectScriptSchemes(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Validate(document.SectionHero, map[string]any{"ctaLink": "mailto:me@example.com"}))
	require.NoError(t, registry.Validate(document.SectionHero, map[string]any{"ctaLink": "/contact"}))

	err := registry.Validate(document.SectionHero, map[string]any{"ctaLink": "javascript:alert(1)"})
	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "content.ctaLink", verr.Field)

	err = registry.Validate(document.SectionProjects, map[string]any{"projects": []any{
		map[string]any{"title": "A", "liveUrl": "ftp://example.com"},
	}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "content.projects[0].liveUrl", verr.Field)
}

func TestAssetRefsInFieldOrder(t *testing.T) {
	content, err := NewRegistry().Decode(document.SectionProjects, map[string]any{"projects": []any{
		map[string]any{"title": "A", "imageUrl": "img/a.png"},
		map[string]any{"title": "B"},
		map[string]any{"title": "C", "imageUrl": "img/c.png"},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{"img/a.png", "img/c.png"}, content.AssetRefs())
}
