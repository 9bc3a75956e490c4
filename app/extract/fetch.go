package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

const maxPageSize = 10 << 20

// PageFetcher downloads an item's canonical page, optionally carrying
// per-source cookies.
type PageFetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewPageFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch returns the page body decoded to UTF-8. Cookies are scoped to
// cookieURL so they survive same-site redirects and go nowhere else.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string, cookieURL string, cookies ...*http.Cookie) ([]byte, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("item has no link")
	}

	client := f.httpClient
	if len(cookies) > 0 {
		jar, err := newCookieJar(cookieURL, cookies)
		if err != nil {
			return nil, err
		}
		withJar := *f.httpClient
		withJar.Jar = jar
		client = &withJar
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxPageSize {
		return nil, fmt.Errorf("page exceeds %d bytes", maxPageSize)
	}

	return decodeCharset(data, resp.Header.Get("Content-Type"))
}

func newCookieJar(cookieURL string, cookies []*http.Cookie) (http.CookieJar, error) {
	u, err := url.Parse(cookieURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid cookie URL '%s'", cookieURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	jar.SetCookies(u, cookies)

	return jar, nil
}

func decodeCharset(data []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return data, nil
	}

	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return data, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return data, nil
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s page: %w", charset, err)
	}

	return decoded, nil
}
