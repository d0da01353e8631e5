// CLAUDE:SUMMARY Safety primitives for the export pipeline: SSRF-checked asset URLs, bounded reads, traversal-safe keys, download slugs.
// Package horosafe provides the safety checks the export pipeline applies to
// untrusted input: asset locators (SSRF prevention), response bodies (bounded
// reads), artifact keys (path traversal) and download file names.
package horosafe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAssetBody is the default cap for a fetched image (10 MiB).
const MaxAssetBody int64 = 10 << 20

var (
	// ErrPathTraversal is returned when a key would escape its base directory.
	ErrPathTraversal = errors.New("horosafe: path traversal detected")
	// ErrSSRF is returned when a URL reaches a private or loopback address.
	ErrSSRF = errors.New("horosafe: URL targets a private or loopback address")
	// ErrUnsafeScheme is returned for anything but http and https.
	ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")
	// ErrTooLarge is returned by LimitedReadAll past its limit.
	ErrTooLarge = errors.New("horosafe: body exceeds limit")
)

// SafePath joins a slash-separated key under base. Keys with a ".." element,
// absolute keys and keys that are not local to base are rejected.
func SafePath(base, key string) (string, error) {
	for _, elem := range strings.Split(filepath.ToSlash(key), "/") {
		if elem == ".." {
			return "", ErrPathTraversal
		}
	}
	rel := filepath.FromSlash(strings.TrimLeft(key, "/"))
	if rel != "" && !filepath.IsLocal(rel) {
		return "", ErrPathTraversal
	}
	return filepath.Join(base, rel), nil
}

// ValidateURL accepts an http(s) URL whose host is neither a private nor a
// loopback address, literally or after DNS resolution. The lookup is bound
// to ctx.
func ValidateURL(ctx context.Context, rawURL string) error {
	host, err := checkURL(rawURL)
	if err != nil {
		return err
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivate(addr) {
			return ErrSSRF
		}
		return nil
	}
	resolved, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The fetch fails on its own and the asset is reported absent.
		return nil
	}
	for _, a := range resolved {
		if addr, err := netip.ParseAddr(a); err == nil && isPrivate(addr) {
			return ErrSSRF
		}
	}
	return nil
}

// ValidateURLAllowPrivate only checks the scheme and the host. It serves
// image stores on the same private network, and tests.
func ValidateURLAllowPrivate(_ context.Context, rawURL string) error {
	_, err := checkURL(rawURL)
	return err
}

func checkURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return "", ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.New("horosafe: URL has no host")
	}
	return host, nil
}

// LimitedReadAll reads at most maxBytes from r. Returns ErrTooLarge if the
// limit is exceeded.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// Slug turns a title into a file-name-safe ASCII slug: accents are folded,
// anything outside [a-z0-9] collapses into single hyphens. Empty titles give
// "book".
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var sb strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && sb.Len() > 0 {
				sb.WriteByte('-')
				hyphen = true
			}
		}
		if sb.Len() >= 80 {
			break
		}
	}
	s := strings.Trim(sb.String(), "-")
	if s == "" {
		return "book"
	}
	return s
}

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("fc00::/7"),
}

func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return true
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
