package websearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

// snippetMaxRunes bounds the enriched snippet so the model context block
// stays small regardless of page size.
const snippetMaxRunes = 1200

const scraperUserAgent = "Mozilla/5.0 (compatible; Parley/1.0)"

// Scraper fetches a result page and extracts its readable article text.
type Scraper struct {
	cfg    config.WebScraperConfig
	logger log.Logger
}

// NewScraper creates a page scraper. Returns nil when scraping is disabled
// so callers can pass the result straight to NewClient.
func NewScraper(cfg config.WebScraperConfig, logger log.Logger) *Scraper {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scraper{cfg: cfg, logger: logger}
}

// ReadableText fetches pageURL and returns its main article text, truncated
// to a bounded length. HTML that defeats readability extraction falls back
// to paragraph text.
func (s *Scraper) ReadableText(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("unsupported url %q", pageURL)
	}

	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
		if text := collapseWhitespace(article.TextContent); text != "" {
			return truncateRunes(text, snippetMaxRunes), nil
		}
	}

	text, err := paragraphText(body)
	if err != nil {
		return "", err
	}
	return truncateRunes(text, snippetMaxRunes), nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	collector := colly.NewCollector(
		colly.UserAgent(scraperUserAgent),
		colly.MaxBodySize(int(s.cfg.MaxPageBytes)),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(s.cfg.Timeout())

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		Delay:       s.cfg.Delay(),
	}); err != nil {
		return nil, fmt.Errorf("scraper limit rule: %w", err)
	}

	var body []byte
	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, fetchErr)
	}
	if len(body) == 0 {
		return nil, errors.New("empty page body")
	}
	return body, nil
}

// paragraphText joins <p> element text as a fallback extraction.
func paragraphText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return collapseWhitespace(strings.Join(parts, " ")), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
