package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-portfolio/pkg/types"
	"github.com/google/uuid"
)

// DefaultMaxBytes caps a single asset download.
const DefaultMaxBytes int64 = 10 << 20

// ErrUnsupportedScheme is returned by Mux for references no resolver claims.
var ErrUnsupportedScheme = errors.New("go-portfolio: unsupported asset scheme")

// ErrAssetTooLarge is returned when an asset exceeds the configured size cap.
var ErrAssetTooLarge = errors.New("go-portfolio: asset too large")

// Scheme returns the lower-cased URL scheme of ref, or "" for relative refs.
func Scheme(ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// Mux dispatches references to resolvers by URL scheme. Relative
// references use the "" scheme.
type Mux struct {
	routes map[string]types.AssetResolver
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{routes: map[string]types.AssetResolver{}}
}

// Handle registers resolver for scheme and returns the mux for chaining.
func (m *Mux) Handle(scheme string, resolver types.AssetResolver) *Mux {
	if resolver != nil {
		m.routes[strings.ToLower(scheme)] = resolver
	}
	return m
}

// ResolveAsset implements types.AssetResolver.
func (m *Mux) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	scheme := Scheme(ref)
	resolver, ok := m.routes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w %q: %w", ErrUnsupportedScheme, scheme, types.ErrAssetNotFound)
	}
	return resolver.ResolveAsset(ctx, owner, ref)
}

// FSResolver reads relative references from a filesystem, typically the
// uploads directory. Each owner sees only the "<owner>/" subtree.
type FSResolver struct {
	FS fs.FS
}

// ResolveAsset implements types.AssetResolver.
func (r FSResolver) ResolveAsset(ctx context.Context, owner uuid.UUID, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.FS == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
	}
	key := strings.TrimSpace(ref)
	if u, err := url.Parse(key); err == nil && (u.RawQuery != "" || u.Fragment != "") {
		key = u.Path
	}
	name, ok := OwnerKey(owner, key)
	if !ok {
		return nil, refused(ref, "outside owner uploads")
	}
	data, err := fs.ReadFile(r.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
		}
		return nil, err
	}
	return data, nil
}

// HTTPConfig configures HTTPResolver.
type HTTPConfig struct {
	Timeout  time.Duration
	MaxBytes int64
	// AllowedHosts limits downloads to these hosts. An entry starting with
	// "." also matches its subdomains. Empty allows any public host.
	AllowedHosts []string
	// AllowPrivateNetworks permits loopback, private and link-local
	// addresses. Local development only.
	AllowPrivateNetworks bool
}

// HTTPResolver downloads http(s) references from public hosts.
type HTTPResolver struct {
	client   *http.Client
	maxBytes int64
	hosts    []string
	private  bool
}

// NewHTTPResolver builds a resolver whose client refuses to dial
// non-public addresses, including after DNS resolution and redirects.
func NewHTTPResolver(cfg HTTPConfig) *HTTPResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	r := &HTTPResolver{maxBytes: cfg.MaxBytes, private: cfg.AllowPrivateNetworks}
	for _, host := range cfg.AllowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			r.hosts = append(r.hosts, host)
		}
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = refusePrivateDial
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	r.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("go-portfolio: too many redirects")
			}
			return r.checkURL(req.URL)
		},
	}
	return r
}

// ResolveAsset implements types.AssetResolver.
func (r *HTTPResolver) ResolveAsset(ctx context.Context, _ uuid.UUID, ref string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, refused(ref, "malformed url")
	}
	if err := r.checkURL(u); err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrAssetRefused) {
			return nil, fmt.Errorf("%w: %w: %s", err, types.ErrAssetNotFound, ref)
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", types.ErrAssetNotFound, ref)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("go-portfolio: asset download failed: status=%d ref=%s", resp.StatusCode, ref)
	}
	return readLimited(resp.Body, r.maxBytes, ref)
}

func (r *HTTPResolver) checkURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %w: scheme %q", ErrAssetRefused, types.ErrAssetNotFound, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: %w: missing host", ErrAssetRefused, types.ErrAssetNotFound)
	}
	if !r.hostAllowed(host) {
		return fmt.Errorf("%w: %w: host %s not allowed", ErrAssetRefused, types.ErrAssetNotFound, host)
	}
	if ip, err := netip.ParseAddr(host); err == nil && !r.private && !publicAddr(ip) {
		return fmt.Errorf("%w: %w: address %s is not public", ErrAssetRefused, types.ErrAssetNotFound, host)
	}
	return nil
}

func (r *HTTPResolver) hostAllowed(host string) bool {
	if len(r.hosts) == 0 {
		return true
	}
	for _, allowed := range r.hosts {
		if host == allowed || (strings.HasPrefix(allowed, ".") && strings.HasSuffix(host, allowed)) {
			return true
		}
	}
	return false
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

func publicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsValid() || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() ||
		ip.IsInterfaceLocalMulticast() {
		return false
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(ip) {
			return false
		}
	}
	return true
}

// refusePrivateDial runs after DNS resolution, so names pointing at
// internal addresses are refused too.
func refusePrivateDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrAssetRefused, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !publicAddr(ip) {
		return fmt.Errorf("%w: address %s is not public", ErrAssetRefused, host)
	}
	return nil
}

func readLimited(body io.Reader, limit int64, ref string) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetTooLarge, ref, limit)
	}
	return data, nil
}
