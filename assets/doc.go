// Package assets provides types.AssetResolver implementations for the export
// packager: a local filesystem reader for relative references, an HTTP
// downloader, a Cloud Storage reader for gs:// references, a Redis
// read-through cache and a Mux that routes references by scheme.
//
// References come from user content, so every resolver is scoped: stored keys
// live under the owner's prefix, buckets and hosts follow allowlists and the
// HTTP client never dials loopback, private or link-local addresses.
package assets
