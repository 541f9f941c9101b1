// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv catalog for newly published papers and
// applies a cheap heuristic relevance pre-filter.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// defaultCategory is queried when neither categories nor keywords are given.
const defaultCategory = "cs.AI"

// aiCategories and aiKeywords are the presets used by FetchAIPapers.
var (
	aiCategories = []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.RO", "stat.ML"}
	aiKeywords   = []string{
		"artificial intelligence", "machine learning", "deep learning",
		"neural network", "large language model", "LLM", "transformer",
		"GPT", "BERT", "diffusion", "reinforcement learning",
		"computer vision", "natural language processing", "NLP",
	}
)

// Query holds the parameters of one catalog fetch.
type Query struct {
	Categories []string
	Keywords   []string
	MaxResults int
	DaysBack   int
}

// Client fetches papers from the arXiv query API. Requests are spaced by a
// rate limiter because arXiv asks clients to wait between calls.
type Client struct {
	http    *http.Client
	cfg     types.FetchConfig
	limiter *rate.Limiter
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewClient creates a Client from cfg. A nil log discards output.
func NewClient(cfg types.FetchConfig, log logrus.FieldLogger) *Client {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for the lookback window.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

// Fetch queries the catalog and returns papers published within the
// lookback window, newest first. Any failure is logged and yields an empty
// slice together with the error, so callers may treat it as "no candidates"
// or escalate it.
func (c *Client) Fetch(ctx context.Context, q Query) ([]types.Paper, error) {
	papers, err := c.fetch(ctx, q)
	if err != nil {
		c.log.WithError(err).Error("arxiv fetch failed")
		return []types.Paper{}, err
	}
	c.log.WithField("count", len(papers)).Info("fetched papers")
	return papers, nil
}

// FetchAIPapers fetches with the preset AI categories and keywords.
func (c *Client) FetchAIPapers(ctx context.Context, daysBack, maxResults int) ([]types.Paper, error) {
	return c.Fetch(ctx, Query{
		Categories: aiCategories,
		Keywords:   aiKeywords,
		MaxResults: maxResults,
		DaysBack:   daysBack,
	})
}

func (c *Client) fetch(ctx context.Context, q Query) ([]types.Paper, error) {
	search := buildSearchQuery(q.Categories, q.Keywords)

	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	base := c.cfg.BaseURL
	if base == "" {
		base = arxivAPIBase
	}
	params := url.Values{}
	params.Set("search_query", search)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	c.log.WithField("query", search).Info("fetching papers")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.HTTP.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries, c.log)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	now := c.now()
	var cutoff time.Time
	if q.DaysBack > 0 {
		cutoff = now.Add(-time.Duration(q.DaysBack) * 24 * time.Hour)
	}

	seen := make(map[string]bool, len(feed.Entries))
	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		p, err := parseEntry(entry, now)
		if err != nil {
			c.log.WithError(err).Warn("skipping arxiv entry")
			continue
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if !cutoff.IsZero() && p.Published.Before(cutoff) {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// buildSearchQuery combines category filters with OR and keyword filters
// (each matched against title or abstract) with AND. With no filters it
// falls back to the default category.
func buildSearchQuery(categories, keywords []string) string {
	var parts []string

	if len(categories) > 0 {
		cats := make([]string, len(categories))
		for i, cat := range categories {
			cats[i] = "cat:" + cat
		}
		parts = append(parts, "("+strings.Join(cats, " OR ")+")")
	}

	if len(keywords) > 0 {
		kws := make([]string, len(keywords))
		for i, kw := range keywords {
			kws[i] = fmt.Sprintf(`(ti:"%s" OR abs:"%s")`, kw, kw)
		}
		parts = append(parts, "("+strings.Join(kws, " AND ")+")")
	}

	if len(parts) == 0 {
		return "cat:" + defaultCategory
	}
	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string          `xml:"id"`
	Title           string          `xml:"title"`
	Summary         string          `xml:"summary"`
	Published       string          `xml:"published"`
	Updated         string          `xml:"updated"`
	Authors         []arxivAuthor   `xml:"author"`
	Categories      []arxivCategory `xml:"category"`
	PrimaryCategory arxivCategory   `xml:"primary_category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

var errMissingID = errors.New("entry has no identifier")

// parseEntry converts one Atom entry into a Paper. A missing published
// date defaults to now and a missing updated date to published.
func parseEntry(entry arxivEntry, now time.Time) (types.Paper, error) {
	id := extractArxivID(entry.ID)
	if id == "" {
		return types.Paper{}, errMissingID
	}

	published := now
	if s := strings.TrimSpace(entry.Published); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return types.Paper{}, fmt.Errorf("entry %s: published date: %w", id, err)
		}
		published = t
	}

	updated := published
	if s := strings.TrimSpace(entry.Updated); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return types.Paper{}, fmt.Errorf("entry %s: updated date: %w", id, err)
		}
		updated = t
	}
	if updated.Before(published) {
		updated = published
	}

	p := types.Paper{
		ID:              id,
		Title:           types.NormalizeSpace(entry.Title),
		Abstract:        types.NormalizeSpace(entry.Summary),
		Published:       published,
		Updated:         updated,
		PDFURL:          "https://arxiv.org/pdf/" + id + ".pdf",
		ArxivURL:        "https://arxiv.org/abs/" + id,
		PrimaryCategory: entry.PrimaryCategory.Term,
	}
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			p.Categories = append(p.Categories, cat.Term)
		}
	}
	return p, nil
}

// extractArxivID pulls the arXiv ID, version suffix included, from the
// entry's <id> URL (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1").
func extractArxivID(idURL string) string {
	idURL = strings.TrimSpace(idURL)
	const prefix = "/abs/"
	if idx := strings.Index(idURL, prefix); idx >= 0 {
		return strings.Trim(idURL[idx+len(prefix):], "/")
	}
	if idx := strings.LastIndex(idURL, "/"); idx >= 0 {
		return idURL[idx+1:]
	}
	return idURL
}
