package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/hyperifyio/articlecrawl/internal/normalize"
)

// ErrPrivateAddress is returned by the dialer when a name resolves to an
// address a public crawler must not reach.
var ErrPrivateAddress = errors.New("refusing to connect to private address")

// NewHTTPClient returns an HTTP client with a large shared connection pool,
// safe for concurrent use by many in-flight crawls. Unless allowPrivate is
// set, the dialer refuses loopback, private and link-local addresses after
// DNS resolution. Per-request deadlines come from the request context.
func NewHTTPClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !allowPrivate {
		dialer.Control = rejectPrivate
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   256,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

func rejectPrivate(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if ip := net.ParseIP(host); ip != nil && normalize.IsPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}
