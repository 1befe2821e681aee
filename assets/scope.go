package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// ErrAssetRefused marks references a resolver will not fetch: hosts or
// buckets outside the allowlist, private network addresses and keys outside
// the owner's prefix. Refusals also wrap types.ErrAssetNotFound so exports
// degrade to a placeholder.
var ErrAssetRefused = errors.New("go-portfolio: asset reference refused")

func refused(ref, reason string) error {
	return fmt.Errorf("%w: %w: %s: %s", ErrAssetRefused, types.ErrAssetNotFound, reason, ref)
}

// OwnerKey maps a storage key into the owner's prefix. Keys that already
// start with "<owner>/" are kept; others are placed under it. The second
// result is false for a nil owner or a key that cleans to nothing.
func OwnerKey(owner uuid.UUID, key string) (string, bool) {
	if owner == uuid.Nil {
		return "", false
	}
	clean := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if clean == "" {
		return "", false
	}
	prefix := owner.String() + "/"
	if !strings.HasPrefix(clean, prefix) {
		clean = prefix + clean
	}
	if !fs.ValidPath(clean) {
		return "", false
	}
	return clean, true
}
