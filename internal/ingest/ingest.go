// Package ingest turns a job posting URL or file into plain text ready for
// analysis.
package ingest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/bullet-ranker/internal/apperr"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

const userAgent = "Mozilla/5.0 (compatible; BulletRanker/1.0)"

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 4 << 20

// jobContentSelectors are tried in order; the first match wins, body is the
// fallback.
var jobContentSelectors = []string{
	".job-description",
	".job-content",
	"#job-description",
	".posting-content",
	".job-details",
	"main",
	"article",
	".content",
	"#content",
}

const noiseSelector = "nav, footer, header, script, style, noscript, .ad, .ads, .sidebar, .cookie-banner, .popup"

// Fetcher retrieves and extracts job posting text.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a fetcher with the default timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// FromURL fetches a job posting page and extracts its main text.
func (f *Fetcher) FromURL(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", apperr.Wrap(apperr.KindInvalidInput, "invalid job posting URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "building request failed", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetworkError, "fetching job posting failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Newf(apperr.KindNetworkError, "job posting fetch returned HTTP %d", resp.StatusCode).
			WithStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetworkError, "reading job posting body failed", err)
	}

	text, err := ExtractText(string(body))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", apperr.New(apperr.KindInvalidInput, "no readable text in job posting page")
	}
	return text, nil
}

// FromFile reads a job description from a plain text file.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "reading job description file failed", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", apperr.New(apperr.KindInvalidInput, "job description file is empty")
	}
	return text, nil
}

// ExtractText pulls the main readable text out of an HTML page. Noise
// elements are stripped first; content selectors are tried in order with
// body as the fallback.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", apperr.Wrap(apperr.KindParseError, "parsing job posting HTML failed", err)
	}

	doc.Find(noiseSelector).Remove()

	var content *goquery.Selection
	for _, selector := range jobContentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	return cleanWhitespace(content.Text()), nil
}

// cleanWhitespace trims each line and drops blank ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
