package document

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// ErrValidation is matched by every *ValidationError through errors.Is.
var ErrValidation = errors.New("go-portfolio: validation failed")

// ValidationError names the field (and section, when relevant) that violates
// a document invariant.
type ValidationError struct {
	Field     string
	SectionID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.SectionID != "" {
		return fmt.Sprintf("go-portfolio: invalid %s (section %s): %s", e.Field, e.SectionID, e.Reason)
	}
	return fmt.Sprintf("go-portfolio: invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a field-level validation error.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidSection builds a validation error scoped to a section.
func InvalidSection(sectionID, field, reason string) *ValidationError {
	return &ValidationError{Field: field, SectionID: sectionID, Reason: reason}
}

var (
	hexColorPattern  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColorPattern = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla)\(\s*-?[0-9.]+(?:deg|%)?\s*(?:,\s*[0-9.]+%?\s*){2,3}\)$`)
	fontFamilyRune   = regexp.MustCompile(`^[A-Za-z0-9 ,'"\-]+$`)
	hostnameLabel    = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
)

// ValidColor reports whether value is a hex or rgb()/hsl() CSS color.
func ValidColor(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return hexColorPattern.MatchString(value) || funcColorPattern.MatchString(strings.ToLower(value))
}

// ValidFontFamily accepts CSS font-family lists made of names, commas and quotes.
func ValidFontFamily(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	return len(value) <= 200 && fontFamilyRune.MatchString(value)
}

// ValidLink accepts fragments, relative paths and http(s)/mailto URLs.
func ValidLink(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	if strings.HasPrefix(raw, "#") {
		return true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "":
		return !strings.HasPrefix(raw, "//")
	case "http", "https":
		return parsed.Host != ""
	case "mailto":
		return parsed.Opaque != ""
	default:
		return false
	}
}

// ValidAssetRef accepts references understood by the asset store port:
// relative keys, http(s) URLs and gs:// object URLs.
func ValidAssetRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return true
	}
	if strings.ContainsAny(ref, "\x00\r\n\t") {
		return false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "":
		return true
	case "http", "https", "gs":
		return parsed.Host != ""
	default:
		return false
	}
}

// ValidHostname reports whether value is a fully qualified domain name.
func ValidHostname(value string) bool {
	if len(value) == 0 || len(value) > 253 {
		return false
	}
	labels := strings.Split(value, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostnameLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// Validate checks the model invariants. It returns the first violation found,
// walking fields in a fixed order so the reported field is deterministic.
func (p Portfolio) Validate() error {
	if p.OwnerID == [16]byte{} {
		return Invalid("ownerId", "owner is required")
	}
	if domain := p.CustomDomain; domain != "" && !ValidHostname(domain) {
		return Invalid("customDomain", "must be a fully qualified hostname")
	}
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(p.Sections))
	for _, section := range p.Sections {
		id := strings.TrimSpace(section.ID)
		if id == "" {
			return Invalid("sections.id", "section id is required")
		}
		if _, dup := seen[id]; dup {
			return InvalidSection(id, "sections.id", "duplicate section id")
		}
		seen[id] = struct{}{}
	}
	if p.Published {
		if err := CheckPublishable(p); err != nil {
			return err
		}
	}
	return nil
}

// CheckPublishable enforces the content requirements of a published portfolio.
func CheckPublishable(p Portfolio) error {
	if strings.TrimSpace(p.Title) == "" {
		return Invalid("title", "title is required to publish")
	}
	if !p.HasVisibleSection() {
		return Invalid("sections", "at least one visible section is required to publish")
	}
	return nil
}

// Validate checks colors, font family, asset references and social links.
func (s Settings) Validate() error {
	if !ValidColor(s.PrimaryColor) {
		return Invalid("settings.primaryColor", fmt.Sprintf("%q is not a valid color", s.PrimaryColor))
	}
	if !ValidColor(s.SecondaryColor) {
		return Invalid("settings.secondaryColor", fmt.Sprintf("%q is not a valid color", s.SecondaryColor))
	}
	if !ValidFontFamily(s.FontFamily) {
		return Invalid("settings.fontFamily", "contains unsupported characters")
	}
	if !ValidAssetRef(s.LogoURL) {
		return Invalid("settings.logoUrl", "unsupported asset reference")
	}
	if !ValidAssetRef(s.Favicon) {
		return Invalid("settings.favicon", "unsupported asset reference")
	}
	platforms := make([]string, 0, len(s.SocialLinks))
	for platform := range s.SocialLinks {
		platforms = append(platforms, string(platform))
	}
	sort.Strings(platforms)
	for _, name := range platforms {
		platform := SocialPlatform(name)
		field := "settings.socialLinks." + name
		if !platform.Known() {
			return Invalid(field, "unknown social platform")
		}
		link := strings.TrimSpace(s.SocialLinks[platform])
		if link == "" {
			continue
		}
		parsed, err := url.Parse(link)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return Invalid(field, "must be an absolute http(s) URL")
		}
	}
	return nil
}
