package render

import (
	"fmt"
	"path"
	"strings"
)

// FileKind classifies entries of an OrderedFileSet.
type FileKind string

const (
	FileMarkup     FileKind = "markup"
	FileStylesheet FileKind = "stylesheet"
	FileAsset      FileKind = "asset"
)

const (
	IndexPath      = "index.html"
	StylesheetPath = "styles.css"
	AssetDir       = "assets"
)

// File is one entry of a rendered site. Markup and stylesheet entries carry
// their bytes; asset entries carry the reference to resolve and their
// collision-free bundle path.
type File struct {
	Path     string
	Kind     FileKind
	Content  []byte
	AssetRef string
	// SectionID names the section that first referenced the asset; empty
	// for page chrome (logo, favicon).
	SectionID string
	// SectionIndex is the 1-based position of that visible section; 0 means
	// page chrome.
	SectionIndex int
	// AssetIndex is the 1-based position of the asset within that section.
	AssetIndex int
}

// OrderedFileSet lists index.html, styles.css, then assets in first-reference order.
type OrderedFileSet []File

// Assets returns the asset entries in order.
func (s OrderedFileSet) Assets() []File {
	out := make([]File, 0, len(s))
	for _, f := range s {
		if f.Kind == FileAsset {
			out = append(out, f)
		}
	}
	return out
}

// Lookup returns the entry at p.
func (s OrderedFileSet) Lookup(p string) (File, bool) {
	for _, f := range s {
		if f.Path == p {
			return f, true
		}
	}
	return File{}, false
}

// AssetLinker returns the URL written into the markup for an asset entry.
type AssetLinker func(File) string

// BundleLink links an asset by its path inside the archive.
func BundleLink(f File) string {
	return f.Path
}

// assetSlot identifies where an asset reference appears.
type assetSlot struct {
	index     int
	sectionID string
}

// assetTable deduplicates asset references and assigns bundle paths in
// first reference order. The first claimant keeps the proposed path; later
// ones get -<section>-<asset> before the extension.
type assetTable struct {
	link     AssetLinker
	byRef    map[string]int
	taken    map[string]bool
	files    []File
	counters map[int]int
}

func newAssetTable(link AssetLinker) *assetTable {
	if link == nil {
		link = BundleLink
	}
	return &assetTable{
		link:     link,
		byRef:    make(map[string]int),
		taken:    make(map[string]bool),
		counters: make(map[int]int),
	}
}

// ref registers an asset reference and returns the link to write in place
// of it.
func (t *assetTable) ref(ref string, slot assetSlot) string {
	if ref == "" {
		return ""
	}
	t.counters[slot.index]++
	if i, ok := t.byRef[ref]; ok {
		return t.link(t.files[i])
	}
	f := File{
		Kind:         FileAsset,
		AssetRef:     ref,
		SectionID:    slot.sectionID,
		SectionIndex: slot.index,
		AssetIndex:   t.counters[slot.index],
	}
	f.Path = t.claim(path.Join(AssetDir, assetBaseName(ref)), f)
	t.byRef[ref] = len(t.files)
	t.files = append(t.files, f)
	return t.link(f)
}

func (t *assetTable) claim(proposed string, f File) string {
	candidate := proposed
	if t.taken[candidate] {
		candidate = withSuffix(proposed, fmt.Sprintf("-%d-%d", f.SectionIndex, f.AssetIndex))
		for n := 2; t.taken[candidate]; n++ {
			candidate = withSuffix(proposed, fmt.Sprintf("-%d-%d-%d", f.SectionIndex, f.AssetIndex, n))
		}
	}
	t.taken[candidate] = true
	return candidate
}

func (t *assetTable) mark() int {
	return len(t.files)
}

func (t *assetTable) rollback(mark, sectionIdx int) {
	for _, f := range t.files[mark:] {
		delete(t.byRef, f.AssetRef)
		delete(t.taken, f.Path)
	}
	t.files = t.files[:mark]
	delete(t.counters, sectionIdx)
}

func withSuffix(p, suffix string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + suffix + ext
}

// assetBaseName derives a bundle-safe file name from a reference.
func assetBaseName(ref string) string {
	clean := ref
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	base := path.Base(strings.TrimRight(clean, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), ".-")
	if name == "" {
		return "asset"
	}
	return name
}
