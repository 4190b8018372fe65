package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/alandlunch/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only, so the server never negotiates HTTP/2 over the utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPBrowser fetches pages without running scripts. It is meant for lunch
// pages that are rendered on the server. Each tab gets its own cookie jar
// and connection pool.
type HTTPBrowser struct {
	proxy string
}

// NewHTTPBrowser creates an HTTPBrowser. proxy may be empty.
func NewHTTPBrowser(proxy string) *HTTPBrowser {
	return &HTTPBrowser{proxy: proxy}
}

// NewTab builds a fresh client with a Chrome TLS fingerprint.
func (b *HTTPBrowser) NewTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, "render canceled before start")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNetwork, "failed to create cookie jar", err)
	}

	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	if b.proxy != "" {
		if proxyURL, err := url.Parse(b.proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &httpTab{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}, nil
}

// Close is a no-op; tabs own their connections.
func (b *HTTPBrowser) Close() error { return nil }

type httpTab struct {
	client *http.Client
	body   string
}

func (t *httpTab) Navigate(ctx context.Context, targetURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeNetwork, "invalid lunch page URL", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sv-FI,sv;q=0.9,fi;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return categorizeError(err, "request for lunch page failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return models.NewScrapeError(
			models.ErrCodeNetwork,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode, targetURL),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return categorizeError(err, "failed to read lunch page")
	}
	t.body = string(body)
	return nil
}

// RunsScripts is false: the body is served as fetched.
func (t *httpTab) RunsScripts() bool { return false }

func (t *httpTab) HTML(ctx context.Context) (string, error) {
	return t.body, nil
}

func (t *httpTab) EvalString(ctx context.Context, js string) (string, error) {
	return "", models.NewScrapeError(
		models.ErrCodeScriptEvaluation,
		"http fetch mode cannot run page scripts",
		nil,
	)
}

func (t *httpTab) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
