// Package normalize turns a raw, possibly doubly percent-encoded URL
// parameter into a validated absolute http(s) URL. It never touches the
// network.
package normalize

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/hyperifyio/articlecrawl/internal/crawlerr"
)

// maxDecodePasses bounds how many percent-decoding layers are peeled off.
const maxDecodePasses = 3

var (
	encodedSeq    = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	absoluteStart = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)
)

// URL is a validated absolute URL together with the decoded string it was
// parsed from.
type URL struct {
	// Decoded is the input after percent-decoding, before re-serialization.
	Decoded string
	Parsed  *url.URL
}

func (u URL) String() string {
	if u.Parsed == nil {
		return ""
	}
	return u.Parsed.String()
}

// Host returns the hostname without port.
func (u URL) Host() string {
	if u.Parsed == nil {
		return ""
	}
	return u.Parsed.Hostname()
}

// Options tunes validation.
type Options struct {
	// AllowPrivateHosts permits loopback, private and link-local targets.
	AllowPrivateHosts bool
}

// Normalize decodes raw and validates the result.
//
// Decoding follows decodeURIComponent semantics ('+' stays '+') and is
// repeated only while the value is not yet an absolute URL and still holds
// escape sequences. An already-decoded URL containing a literal "%41" is
// therefore left alone.
func Normalize(raw string, opts Options) (URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return URL{}, crawlerr.New(crawlerr.InvalidURL, "empty url")
	}
	s, err := Decode(s)
	if err != nil {
		return URL{}, err
	}

	u, err := url.Parse(s)
	if err != nil {
		return URL{}, crawlerr.Wrap(crawlerr.InvalidURL, "parse url", err)
	}
	if !u.IsAbs() || !IsHTTPScheme(u) {
		return URL{}, crawlerr.New(crawlerr.InvalidURL, "unsupported url scheme: "+quoteScheme(u.Scheme))
	}
	if u.Hostname() == "" {
		return URL{}, crawlerr.New(crawlerr.InvalidURL, "url has no host")
	}
	if u.User != nil {
		return URL{}, crawlerr.New(crawlerr.InvalidURL, "credentials in url are not allowed")
	}
	if !opts.AllowPrivateHosts && IsLocalOrPrivateHost(u.Hostname()) {
		return URL{}, crawlerr.New(crawlerr.InvalidURL, "private host not allowed: "+u.Hostname())
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = escapeQuery(u.RawQuery)
	return URL{Decoded: s, Parsed: u}, nil
}

// Decode peels percent-encoding layers off s. It stops as soon as s looks
// like an absolute URL or holds no escape sequence. Malformed escapes yield
// an InvalidURL error.
func Decode(s string) (string, error) {
	for i := 0; i < maxDecodePasses; i++ {
		if absoluteStart.MatchString(s) || !encodedSeq.MatchString(s) {
			break
		}
		next, err := url.PathUnescape(s)
		if err != nil {
			return "", crawlerr.Wrap(crawlerr.InvalidURL, "decode url", err)
		}
		s = next
	}
	return s, nil
}

// escapeQuery percent-encodes bytes that may not appear literally in a
// request line. Parameter order and existing escapes are kept; a '%' that
// does not start an escape sequence is encoded as "%25".
func escapeQuery(q string) string {
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '%' && i+2 < len(q) && isHex(q[i+1]) && isHex(q[i+2]):
			b.WriteByte(c)
		case c == '%' || c <= ' ' || c >= 0x7f || strings.IndexByte(queryUnsafe, c) >= 0:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

const (
	upperhex    = "0123456789ABCDEF"
	queryUnsafe = "\"<>\\^`{|}"
)

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func quoteScheme(s string) string {
	if s == "" {
		return `""`
	}
	return s
}

// IsHTTPScheme reports whether u uses http or https.
func IsHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// IsLocalOrPrivateHost reports whether host names the local machine or a
// private, loopback or link-local address. Only literal addresses and
// localhost aliases are recognized; names are not resolved.
func IsLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	if h == "localhost" || h == "localhost.localdomain" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return IsPrivateIP(ip)
	}
	return false
}

// IsPrivateIP reports whether ip must not be reached from a public crawler.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
