// Package insight extracts best-effort brand insights from client websites.
package insight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"whitecoat/internal/config"
	"whitecoat/internal/logger"
)

// catalogPaths are common storefront paths probed for extra product content.
// Shopify-style paths first, then generic ones.
var catalogPaths = []string{
	"/collections/all", "/products", "/collections",
	"/shop", "/store", "/all-products",
}

var (
	hexColorRegex = regexp.MustCompile(`#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`)
	rgbColorRegex = regexp.MustCompile(`(?i)rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+(?:\s*,\s*[\d.]+)?\s*\)`)
	styleTagRegex = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)
	inlineStyleRegex = regexp.MustCompile(`(?i)style=["']([^"']+)["']`)
	bgImageRegex     = regexp.MustCompile(`(?i)background(?:-image)?:\s*url\(["']?([^"')]+)["']?\)`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// ScrapeResult holds the raw output of scraping one page.
type ScrapeResult struct {
	TextContent string
	HTML        string
	FinalURL    string
}

// Scraper fetches pages from client websites with conservative timeouts.
type Scraper struct {
	cfg config.Scraper
}

// NewScraper creates a new website scraper
func NewScraper(cfg config.Scraper) *Scraper {
	return &Scraper{cfg: cfg}
}

// NormalizeURL trims the input, prepends https:// when no scheme is present,
// and validates the result.
func NormalizeURL(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL format: %s", raw)
	}
	return normalized, nil
}

// ScrapePage fetches a single page and extracts its visible text.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	log := logger.Get()

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch website: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch website: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	html := string(body)

	text, err := extractText(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	text = truncateToRune(text, s.cfg.PageCharLimit)

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	log.Debug("Scraped page", "url", pageURL, "chars", len(text))

	return &ScrapeResult{
		TextContent: text,
		HTML:        html,
		FinalURL:    finalURL,
	}, nil
}

// DiscoverPages probes common storefront paths with HEAD requests and returns
// the pages worth scraping, starting with baseURL. At most MaxPages are
// returned; probe failures are skipped silently.
func (s *Scraper) DiscoverPages(ctx context.Context, baseURL string) []string {
	log := logger.Get()
	pages := []string{baseURL}

	base, err := url.Parse(baseURL)
	if err != nil {
		return pages
	}

	for _, path := range catalogPaths {
		if len(pages) >= s.cfg.MaxPages {
			break
		}

		testURL := base.ResolveReference(&url.URL{Path: path}).String()

		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, testURL, nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("User-Agent", s.cfg.UserAgent)

		resp, err := http.DefaultClient.Do(req)
		cancel()
		if err != nil {
			log.Debug("Catalog path not accessible", "path", path)
			continue
		}
		resp.Body.Close()

		// Skip paths that just redirect back to the homepage
		if resp.StatusCode >= 200 && resp.StatusCode < 300 &&
			resp.Request.URL.String() != baseURL && !containsString(pages, testURL) {
			pages = append(pages, testURL)
			log.Info("Found additional catalog page", "url", testURL)
		}
	}

	return pages
}

// FetchImage downloads an image and returns its bytes and content type.
// Returns an error for non-image responses.
func (s *Scraper) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.ImageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("not an image: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// extractText extracts visible text from HTML, dropping scripts and styles.
func extractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	text := doc.Text()
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}

// ExtractColors pulls color literals out of style tags and inline styles,
// filters neutral whites/blacks/grays, and returns at most 6 distinct colors.
func ExtractColors(html string) []string {
	seen := make(map[string]bool)
	var colors []string

	add := func(color string) {
		if !seen[color] {
			seen[color] = true
			colors = append(colors, color)
		}
	}

	collect := func(css string) {
		for _, c := range hexColorRegex.FindAllString(css, -1) {
			add(strings.ToUpper(c))
		}
		for _, c := range rgbColorRegex.FindAllString(css, -1) {
			add(strings.ToLower(c))
		}
	}

	for _, m := range styleTagRegex.FindAllStringSubmatch(html, -1) {
		collect(m[1])
	}
	for _, m := range inlineStyleRegex.FindAllStringSubmatch(html, -1) {
		collect(m[1])
	}

	var filtered []string
	for _, color := range colors {
		if isNeutralColor(color) {
			continue
		}
		filtered = append(filtered, color)
		if len(filtered) >= 6 {
			break
		}
	}
	return filtered
}

// isNeutralColor reports whether a hex color is pure white, black, or a gray
func isNeutralColor(color string) bool {
	upper := strings.ToUpper(color)
	if upper == "#FFFFFF" || upper == "#FFF" || upper == "#000000" || upper == "#000" {
		return true
	}
	if !strings.HasPrefix(upper, "#") {
		return false
	}
	hex := upper[1:]
	// Grays have equal channel values
	if len(hex) == 3 && hex[0] == hex[1] && hex[1] == hex[2] {
		return true
	}
	if len(hex) == 6 && hex[0:2] == hex[2:4] && hex[2:4] == hex[4:6] {
		return true
	}
	return false
}

// ExtractImageURLs collects likely product/hero image URLs from img tags and
// CSS background declarations, skipping icons, logos, and tracking pixels.
// Returns at most 10 distinct absolute URLs.
func ExtractImageURLs(html, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var imageURLs []string

	add := func(raw string) {
		resolved := resolveImageURL(raw, base)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		imageURLs = append(imageURLs, resolved)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr("src")
			if skipImageURL(src) {
				return
			}
			add(src)
		})
	}

	for _, m := range bgImageRegex.FindAllStringSubmatch(html, -1) {
		if strings.HasPrefix(m[1], "data:") {
			continue
		}
		add(m[1])
	}

	if len(imageURLs) > 10 {
		imageURLs = imageURLs[:10]
	}
	return imageURLs
}

// skipImageURL filters data URLs, icons, logos, and tracking pixels
func skipImageURL(src string) bool {
	if strings.HasPrefix(src, "data:") {
		return true
	}
	for _, marker := range []string{"pixel", "tracking", "icon", "logo", "favicon", "1x1", "spacer"} {
		if strings.Contains(src, marker) {
			return true
		}
	}
	return false
}

func resolveImageURL(raw string, base *url.URL) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// truncateToRune caps s at limit bytes without splitting a multi-byte rune
// at the boundary.
func truncateToRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
