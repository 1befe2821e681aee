package section

import "github.com/goliatone/go-portfolio/document"

// Content is the typed view of a section payload. The set of implementations
// is closed: HeroContent, AboutContent, ProjectsContent, SkillsContent,
// ContactContent and TestimonialsContent.
type Content interface {
	SectionType() document.SectionType
	// AssetRefs lists the non-empty asset references in field order.
	AssetRefs() []string
	sealed()
}

// HeroContent is the banner at the top of the page.
type HeroContent struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	CTAText         string `json:"ctaText"`
	CTALink         string `json:"ctaLink"`
	BackgroundImage string `json:"backgroundImage"`
}

func (HeroContent) SectionType() document.SectionType { return document.SectionHero }
func (c HeroContent) AssetRefs() []string             { return nonEmpty(c.BackgroundImage) }
func (HeroContent) sealed()                           {}

// AboutContent is a short biography with an optional portrait.
type AboutContent struct {
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (AboutContent) SectionType() document.SectionType { return document.SectionAbout }
func (c AboutContent) AssetRefs() []string             { return nonEmpty(c.Image) }
func (AboutContent) sealed()                           {}

// Project is one entry of the projects grid.
type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"imageUrl"`
	Technologies []string `json:"technologies"`
	LiveURL      string   `json:"liveUrl"`
	GithubURL    string   `json:"githubUrl"`
	Featured     bool     `json:"featured"`
}

// ProjectsContent lists portfolio projects.
type ProjectsContent struct {
	Projects []Project `json:"projects"`
}

func (ProjectsContent) SectionType() document.SectionType { return document.SectionProjects }
func (ProjectsContent) sealed()                           {}

func (c ProjectsContent) AssetRefs() []string {
	refs := make([]string, 0, len(c.Projects))
	for _, project := range c.Projects {
		refs = append(refs, nonEmpty(project.ImageURL)...)
	}
	return refs
}

// Skill is a named proficiency between 0 and 100.
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Category string `json:"category"`
}

// SkillsContent lists skills, grouped by category when rendered.
type SkillsContent struct {
	Skills []Skill `json:"skills"`
}

func (SkillsContent) SectionType() document.SectionType { return document.SectionSkills }
func (SkillsContent) AssetRefs() []string               { return nil }
func (SkillsContent) sealed()                           {}

// ContactContent carries the public contact details.
type ContactContent struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

func (ContactContent) SectionType() document.SectionType { return document.SectionContact }
func (ContactContent) AssetRefs() []string               { return nil }
func (ContactContent) sealed()                           {}

// Testimonial is a quote from a client or colleague, rated 0 to 5.
type Testimonial struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
	Rating   int    `json:"rating"`
}

// TestimonialsContent lists testimonials.
type TestimonialsContent struct {
	Testimonials []Testimonial `json:"testimonials"`
}

func (TestimonialsContent) SectionType() document.SectionType { return document.SectionTestimonials }
func (TestimonialsContent) sealed()                           {}

func (c TestimonialsContent) AssetRefs() []string {
	refs := make([]string, 0, len(c.Testimonials))
	for _, item := range c.Testimonials {
		refs = append(refs, nonEmpty(item.ImageURL)...)
	}
	return refs
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, value := range values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
