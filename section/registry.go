package section

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/goliatone/go-portfolio/document"
)

// Definition describes one section type of the catalogue.
type Definition struct {
	Type   document.SectionType
	Label  string
	Fields []string
	decode func(map[string]any) (Content, error)
}

// Registry is the closed section catalogue. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	defs map[document.SectionType]Definition
}

var _ document.ContentValidator = (*Registry)(nil)

// NewRegistry returns the catalogue with all six section types.
func NewRegistry() *Registry {
	defs := []Definition{
		{
			Type:   document.SectionHero,
			Label:  "Hero",
			Fields: []string{"title", "subtitle", "ctaText", "ctaLink", "backgroundImage"},
			decode: decodeHero,
		},
		{
			Type:   document.SectionAbout,
			Label:  "About",
			Fields: []string{"description", "image"},
			decode: decodeAbout,
		},
		{
			Type:   document.SectionProjects,
			Label:  "Projects",
			Fields: []string{"projects"},
			decode: decodeProjects,
		},
		{
			Type:   document.SectionSkills,
			Label:  "Skills",
			Fields: []string{"skills"},
			decode: decodeSkills,
		},
		{
			Type:   document.SectionContact,
			Label:  "Contact",
			Fields: []string{"email", "phone", "location", "message"},
			decode: decodeContact,
		},
		{
			Type:   document.SectionTestimonials,
			Label:  "Testimonials",
			Fields: []string{"testimonials"},
			decode: decodeTestimonials,
		},
	}
	registry := &Registry{defs: make(map[document.SectionType]Definition, len(defs))}
	for _, def := range defs {
		registry.defs[def.Type] = def
	}
	return registry
}

// Types returns the registered section types in catalogue order.
func (r *Registry) Types() []document.SectionType {
	return document.SectionTypes()
}

// Definition returns the catalogue entry for t.
func (r *Registry) Definition(t document.SectionType) (Definition, bool) {
	def, ok := r.defs[t]
	return def, ok
}

// Decode converts a raw payload into its typed variant and validates it.
// The raw map is never modified.
func (r *Registry) Decode(t document.SectionType, content map[string]any) (Content, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, document.Invalid("type", fmt.Sprintf("unknown section type %q", t))
	}
	return def.decode(content)
}

// Validate implements document.ContentValidator.
func (r *Registry) Validate(t document.SectionType, content map[string]any) error {
	_, err := r.Decode(t, content)
	return err
}

func decodeInto(content map[string]any, target any) error {
	if len(content) == 0 {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return document.Invalid("content", "content is not serializable")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return document.Invalid("content."+typeErr.Field, fmt.Sprintf("expected %s", typeErr.Type))
		}
		return document.Invalid("content", "malformed content")
	}
	return nil
}

func decodeHero(content map[string]any) (Content, error) {
	var out HeroContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	if !document.ValidLink(out.CTALink) {
		return nil, document.Invalid("content.ctaLink", "unsupported link")
	}
	if !document.ValidAssetRef(out.BackgroundImage) {
		return nil, document.Invalid("content.backgroundImage", "unsupported asset reference")
	}
	return out, nil
}

func decodeAbout(content map[string]any) (Content, error) {
	var out AboutContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	if !document.ValidAssetRef(out.Image) {
		return nil, document.Invalid("content.image", "unsupported asset reference")
	}
	return out, nil
}

func decodeProjects(content map[string]any) (Content, error) {
	var out ProjectsContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	for i, project := range out.Projects {
		field := fmt.Sprintf("content.projects[%d]", i)
		if !document.ValidAssetRef(project.ImageURL) {
			return nil, document.Invalid(field+".imageUrl", "unsupported asset reference")
		}
		if !document.ValidLink(project.LiveURL) {
			return nil, document.Invalid(field+".liveUrl", "unsupported link")
		}
		if !document.ValidLink(project.GithubURL) {
			return nil, document.Invalid(field+".githubUrl", "unsupported link")
		}
	}
	if out.Projects == nil {
		out.Projects = []Project{}
	}
	return out, nil
}

func decodeSkills(content map[string]any) (Content, error) {
	var out SkillsContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	for i, skill := range out.Skills {
		if skill.Level < 0 || skill.Level > 100 {
			return nil, document.Invalid(fmt.Sprintf("content.skills[%d].level", i), "must be between 0 and 100")
		}
	}
	if out.Skills == nil {
		out.Skills = []Skill{}
	}
	return out, nil
}

func decodeContact(content map[string]any) (Content, error) {
	var out ContactContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	if email := strings.TrimSpace(out.Email); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, document.Invalid("content.email", "must be a valid email address")
		}
	}
	return out, nil
}

func decodeTestimonials(content map[string]any) (Content, error) {
	var out TestimonialsContent
	if err := decodeInto(content, &out); err != nil {
		return nil, err
	}
	for i, item := range out.Testimonials {
		field := fmt.Sprintf("content.testimonials[%d]", i)
		if item.Rating < 0 || item.Rating > 5 {
			return nil, document.Invalid(field+".rating", "must be between 0 and 5")
		}
		if !document.ValidAssetRef(item.ImageURL) {
			return nil, document.Invalid(field+".imageUrl", "unsupported asset reference")
		}
	}
	if out.Testimonials == nil {
		out.Testimonials = []Testimonial{}
	}
	return out, nil
}
