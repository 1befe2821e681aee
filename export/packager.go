package export

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ManifestPath is the bundle metadata entry written last in every archive.
const ManifestPath = "manifest.json"

// DefaultConcurrency bounds parallel asset resolution.
const DefaultConcurrency = 4

// entryTime is stamped on every zip entry so archives are byte-stable.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// PlaceholderGIF is a transparent 1x1 GIF used for unresolvable assets.
var PlaceholderGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Config customizes a Packager.
type Config struct {
	Concurrency int
	Placeholder []byte
	Logger      types.Logger
}

// Packager resolves assets and writes the site bundle as a zip archive. It
// keeps no per-call state and is safe for concurrent use.
type Packager struct {
	concurrency int
	placeholder []byte
	logger      types.Logger
}

// NewPackager applies defaults to cfg.
func NewPackager(cfg Config) *Packager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if len(cfg.Placeholder) == 0 {
		cfg.Placeholder = PlaceholderGIF
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return &Packager{
		concurrency: cfg.Concurrency,
		placeholder: append([]byte(nil), cfg.Placeholder...),
		logger:      cfg.Logger,
	}
}

// Metadata is recorded in manifest.json.
type Metadata struct {
	Title        string `json:"title"`
	Template     string `json:"template"`
	CustomDomain string `json:"customDomain,omitempty"`
}

// PackOption customizes a single Pack call.
type PackOption func(*packOptions)

type packOptions struct {
	metadata Metadata
	owner    uuid.UUID
}

// WithMetadata sets the manifest metadata.
func WithMetadata(meta Metadata) PackOption {
	return func(o *packOptions) {
		o.metadata = meta
	}
}

// WithOwner scopes asset resolution to the portfolio owner.
func WithOwner(owner uuid.UUID) PackOption {
	return func(o *packOptions) {
		o.owner = owner
	}
}

// Entry describes one file of the finished archive.
type Entry struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest is the JSON document stored at ManifestPath.
type Manifest struct {
	Metadata
	Files []Entry `json:"files"`
}

// Archive is a finished bundle.
type Archive struct {
	Bytes    []byte
	Files    []Entry
	Warnings []render.Warning
}

// Pack resolves every asset of files through resolver and returns the zip
// bytes; the markup already links assets by their bundle paths. Resolution
// failures other than cancellation become placeholders plus warnings. When
// ctx is cancelled the partial output is discarded and ctx.Err() is returned.
func (p *Packager) Pack(ctx context.Context, files render.OrderedFileSet, resolver types.AssetResolver, options ...PackOption) (Archive, error) {
	var po packOptions
	for _, opt := range options {
		if opt != nil {
			opt(&po)
		}
	}
	if err := ctx.Err(); err != nil {
		return Archive{}, err
	}
	assets := files.Assets()
	if len(assets) > 0 && resolver == nil {
		return Archive{}, types.ErrMissingAssetResolver
	}

	contents, warnings, err := p.resolveAll(ctx, po.owner, assets, resolver)
	if err != nil {
		return Archive{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := make([]Entry, 0, len(files)+1)
	assetIdx := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Archive{}, err
		}
		name, data := f.Path, f.Content
		if f.Kind == render.FileAsset {
			data = contents[assetIdx]
			assetIdx++
		}
		if err := writeEntry(zw, name, data); err != nil {
			return Archive{}, err
		}
		entries = append(entries, newEntry(name, data))
	}

	manifest, err := json.MarshalIndent(Manifest{Metadata: po.metadata, Files: entries}, "", "  ")
	if err != nil {
		return Archive{}, err
	}
	if err := writeEntry(zw, ManifestPath, manifest); err != nil {
		return Archive{}, err
	}
	entries = append(entries, newEntry(ManifestPath, manifest))
	if err := zw.Close(); err != nil {
		return Archive{}, err
	}
	if err := ctx.Err(); err != nil {
		return Archive{}, err
	}
	return Archive{Bytes: buf.Bytes(), Files: entries, Warnings: warnings}, nil
}

func (p *Packager) resolveAll(ctx context.Context, owner uuid.UUID, assets []render.File, resolver types.AssetResolver) ([][]byte, []render.Warning, error) {
	contents := make([][]byte, len(assets))
	failures := make([]error, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := resolver.ResolveAsset(gctx, owner, asset.AssetRef)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var warnings []render.Warning
	for i, failure := range failures {
		if failure == nil {
			continue
		}
		contents[i] = p.placeholder
		reason := "unavailable"
		if errors.Is(failure, types.ErrAssetNotFound) {
			reason = "not found"
		}
		warnings = append(warnings, render.Warning{
			SectionID: assets[i].SectionID,
			Message:   fmt.Sprintf("asset %q %s, placeholder written to %s", assets[i].AssetRef, reason, assets[i].Path),
		})
		p.logger.Warn("export asset placeholder", "ref", assets[i].AssetRef, "section_id", assets[i].SectionID, "error", failure.Error())
	}
	return contents, warnings, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(0o644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func newEntry(name string, data []byte) Entry {
	sum := sha256.Sum256(data)
	return Entry{Path: name, Size: len(data), SHA256: hex.EncodeToString(sum[:])}
}

var slugBreak = regexp.MustCompile(`[^a-z0-9]+`)

// ArchiveName returns the download file name for a portfolio title.
func ArchiveName(title string) string {
	slug := strings.Trim(slugBreak.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug + "-portfolio.zip"
}
