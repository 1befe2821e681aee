package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-portfolio/document"
	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/goliatone/go-portfolio/render"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type mapResolver map[string][]byte

func (m mapResolver) ResolveAsset(_ context.Context, _ uuid.UUID, ref string) ([]byte, error) {
	data, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
	}
	return data, nil
}

func renderPortfolio(t *testing.T, mutate func(*document.Portfolio)) render.Result {
	t.Helper()
	p := document.NewDefault(uuid.MustParse("11111111-1111-1111-1111-111111111111"), fixedNow)
	p.ID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	if mutate != nil {
		mutate(&p)
	}
	engine, err := render.NewEngine(nil, nil)
	require.NoError(t, err)
	result, err := engine.Render(p)
	require.NoError(t, err)
	return result
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string, len(reader.File))
	for _, f := range reader.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func withProjects(p *document.Portfolio) {
	p.Settings.LogoURL = "brand/logo.png"
	p.Sections[2].Content["projects"] = []any{
		map[string]any{"title": "One", "imageUrl": "shots/one.png"},
		map[string]any{"title": "Two", "imageUrl": "other/one.png"},
	}
}

func TestPackWritesBundleLayout(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	resolver := mapResolver{
		"brand/logo.png": []byte("LOGO"),
		"shots/one.png":  []byte("ONE"),
		"other/one.png":  []byte("OTHER"),
	}

	archive, err := NewPackager(Config{}).Pack(context.Background(), result.Files, resolver,
		WithMetadata(Metadata{Title: "My Portfolio", Template: "modern", CustomDomain: "me.example.com"}))
	require.NoError(t, err)
	require.Empty(t, archive.Warnings)

	files := readZip(t, archive.Bytes)
	require.Equal(t, "LOGO", files["assets/logo.png"])
	require.Equal(t, "ONE", files["assets/one.png"])
	require.Equal(t, "OTHER", files["assets/one-3-2.png"])

	index := files["index.html"]
	require.Contains(t, index, `src="assets/logo.png"`)
	require.Contains(t, index, `src="assets/one.png"`)
	require.Contains(t, index, `src="assets/one-3-2.png"`)

	var manifest Manifest
	require.NoError(t, json.Unmarshal([]byte(files[ManifestPath]), &manifest))
	require.Equal(t, "me.example.com", manifest.CustomDomain)
	paths := make([]string, 0, len(manifest.Files))
	for _, entry := range manifest.Files {
		paths = append(paths, entry.Path)
	}
	require.Equal(t, []string{"index.html", "styles.css", "assets/logo.png", "assets/one.png", "assets/one-3-2.png"}, paths)
	require.Len(t, archive.Files, 6)
}

func TestPackIsDeterministic(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	resolver := mapResolver{"brand/logo.png": []byte("LOGO"), "shots/one.png": []byte("ONE")}
	packager := NewPackager(Config{Concurrency: 2})

	first, err := packager.Pack(context.Background(), result.Files, resolver)
	require.NoError(t, err)
	second, err := packager.Pack(context.Background(), result.Files, resolver)
	require.NoError(t, err)
	require.Equal(t, first.Bytes, second.Bytes)
	require.Equal(t, first.Warnings, second.Warnings)
}

func TestPackUsesPlaceholderForMissingAsset(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	resolver := mapResolver{"brand/logo.png": []byte("LOGO"), "shots/one.png": []byte("ONE")}

	archive, err := NewPackager(Config{}).Pack(context.Background(), result.Files, resolver)
	require.NoError(t, err)
	require.Len(t, archive.Warnings, 1)
	require.Contains(t, archive.Warnings[0].Message, "other/one.png")
	require.Contains(t, archive.Warnings[0].Message, "not found")
	require.Equal(t, "projects-1", archive.Warnings[0].SectionID)

	files := readZip(t, archive.Bytes)
	require.Equal(t, string(PlaceholderGIF), files["assets/one-3-2.png"])
}

func TestPackToleratesResolverFailures(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	resolver := types.AssetResolverFunc(func(context.Context, uuid.UUID, string) ([]byte, error) {
		return nil, fmt.Errorf("storage offline")
	})

	archive, err := NewPackager(Config{}).Pack(context.Background(), result.Files, resolver)
	require.NoError(t, err)
	require.Len(t, archive.Warnings, 3)
	require.Contains(t, archive.Warnings[0].Message, "unavailable")
}

func TestPackPassesOwnerToResolver(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	owner := uuid.New()
	var (
		mu   sync.Mutex
		seen []uuid.UUID
	)
	resolver := types.AssetResolverFunc(func(_ context.Context, got uuid.UUID, _ string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, got)
		return []byte("X"), nil
	})

	_, err := NewPackager(Config{}).Pack(context.Background(), result.Files, resolver, WithOwner(owner))
	require.NoError(t, err)
	require.Len(t, seen, 3)
	for _, got := range seen {
		require.Equal(t, owner, got)
	}
}

func TestPackCancellationDiscardsOutput(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	ctx, cancel := context.WithCancel(context.Background())
	resolver := types.AssetResolverFunc(func(ctx context.Context, _ uuid.UUID, _ string) ([]byte, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	archive, err := NewPackager(Config{Concurrency: 1}).Pack(ctx, result.Files, resolver)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, archive.Bytes)
}

func TestPackWithoutAssetsNeedsNoResolver(t *testing.T) {
	result := renderPortfolio(t, nil)

	archive, err := NewPackager(Config{}).Pack(context.Background(), result.Files, nil)
	require.NoError(t, err)
	files := readZip(t, archive.Bytes)
	require.Len(t, files, 3)
	require.True(t, strings.HasPrefix(files["index.html"], "<!DOCTYPE html>"))
}

func TestPackRequiresResolverForAssets(t *testing.T) {
	result := renderPortfolio(t, withProjects)
	_, err := NewPackager(Config{}).Pack(context.Background(), result.Files, nil)
	require.ErrorIs(t, err, types.ErrMissingAssetResolver)
}

func TestArchiveName(t *testing.T) {
	require.Equal(t, "my-portfolio-portfolio.zip", ArchiveName("My Portfolio"))
	require.Equal(t, "ana-s-work-2025-portfolio.zip", ArchiveName("  Ana's Work 2025! "))
	require.Equal(t, "untitled-portfolio.zip", ArchiveName("???"))
}
