package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/section"
)

type pageView struct {
	Title          string
	PageTitle      string
	SEODescription string
	Description    string
	Theme          string
	Favicon        string
	Logo           string
	Nav            []navItem
	Sections       []template.HTML
	Social         []socialLink
}

type navItem struct {
	ID    string
	Label string
}

type socialLink struct {
	Label string
	URL   template.URL
}

type heroView struct {
	ID         string
	Title      string
	Subtitle   string
	CTAText    string
	CTALink    template.URL
	Background string
}

type aboutView struct {
	ID          string
	Heading     string
	Description string
	Image       string
}

type projectView struct {
	Title        string
	Description  string
	Image        string
	Technologies []string
	LiveURL      template.URL
	GithubURL    template.URL
	Featured     bool
}

type projectsView struct {
	ID       string
	Heading  string
	Projects []projectView
}

type skillGroup struct {
	Category string
	Skills   []section.Skill
}

type skillsView struct {
	ID      string
	Heading string
	Groups  []skillGroup
}

type contactView struct {
	ID        string
	Heading   string
	Email     string
	EmailLink template.URL
	Phone     string
	Location  string
	Message   string
}

type testimonialView struct {
	Name    string
	Byline  string
	Content string
	Image   string
	Rating  int
	Stars   string
}

type testimonialsView struct {
	ID           string
	Heading      string
	Testimonials []testimonialView
}

// renderSection dispatches on the sealed content variants. Links reaching
// template.URL were already checked by the section registry.
func (e *Engine) renderSection(sec document.Section, content section.Content, assets *assetTable, slot assetSlot) (Fragment, error) {
	head := heading(sec, e.registry)
	var (
		name  string
		data  any
		empty bool
	)
	switch c := content.(type) {
	case section.HeroContent:
		name = "hero"
		data = heroView{
			ID:         sec.ID,
			Title:      c.Title,
			Subtitle:   c.Subtitle,
			CTAText:    c.CTAText,
			CTALink:    template.URL(c.CTALink),
			Background: assets.ref(c.BackgroundImage, slot),
		}
		empty = c.Title == "" && c.Subtitle == "" && c.CTAText == "" && c.BackgroundImage == ""
	case section.AboutContent:
		name = "about"
		data = aboutView{
			ID:          sec.ID,
			Heading:     head,
			Description: c.Description,
			Image:       assets.ref(c.Image, slot),
		}
		empty = c.Description == "" && c.Image == ""
	case section.ProjectsContent:
		name = "projects"
		view := projectsView{ID: sec.ID, Heading: head}
		for _, project := range c.Projects {
			view.Projects = append(view.Projects, projectView{
				Title:        project.Title,
				Description:  project.Description,
				Image:        assets.ref(project.ImageURL, slot),
				Technologies: project.Technologies,
				LiveURL:      template.URL(project.LiveURL),
				GithubURL:    template.URL(project.GithubURL),
				Featured:     project.Featured,
			})
		}
		data = view
		empty = len(c.Projects) == 0
	case section.SkillsContent:
		name = "skills"
		data = skillsView{ID: sec.ID, Heading: head, Groups: groupSkills(c.Skills)}
		empty = len(c.Skills) == 0
	case section.ContactContent:
		name = "contact"
		view := contactView{
			ID:       sec.ID,
			Heading:  head,
			Email:    c.Email,
			Phone:    c.Phone,
			Location: c.Location,
			Message:  c.Message,
		}
		if c.Email != "" {
			view.EmailLink = template.URL("mailto:" + c.Email)
		}
		data = view
		empty = c.Email == "" && c.Phone == "" && c.Location == "" && c.Message == ""
	case section.TestimonialsContent:
		name = "testimonials"
		view := testimonialsView{ID: sec.ID, Heading: head}
		for _, item := range c.Testimonials {
			view.Testimonials = append(view.Testimonials, testimonialView{
				Name:    item.Name,
				Byline:  byline(item.Role, item.Company),
				Content: item.Content,
				Image:   assets.ref(item.ImageURL, slot),
				Rating:  item.Rating,
				Stars:   stars(item.Rating),
			})
		}
		data = view
		empty = len(c.Testimonials) == 0
	default:
		return Fragment{}, fmt.Errorf("skipped: no renderer for %T", content)
	}

	var buf bytes.Buffer
	if err := e.sections.ExecuteTemplate(&buf, name, data); err != nil {
		return Fragment{}, fmt.Errorf("skipped: %w", err)
	}
	return Fragment{SectionID: sec.ID, Type: sec.Type, HTML: buf.String(), Empty: empty}, nil
}

// groupSkills buckets skills by category in first-appearance order.
func groupSkills(skills []section.Skill) []skillGroup {
	var groups []skillGroup
	index := map[string]int{}
	for _, skill := range skills {
		category := strings.TrimSpace(skill.Category)
		if category == "" {
			category = "General"
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, skillGroup{Category: category})
		}
		groups[i].Skills = append(groups[i].Skills, skill)
	}
	return groups
}

func byline(role, company string) string {
	switch {
	case role != "" && company != "":
		return role + ", " + company
	case role != "":
		return role
	default:
		return company
	}
}

func stars(rating int) string {
	if rating <= 0 {
		return ""
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
