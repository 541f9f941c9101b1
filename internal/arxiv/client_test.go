// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

const sampleFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2503.01234v1</id>
    <updated>2025-03-10T08:00:00Z</updated>
    <published>2025-03-09T18:00:00Z</published>
    <title>A Novel   Approach
      to Agents</title>
    <summary>  We present
      agents.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <arxiv:primary_category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <title>No identifier</title>
    <published>2025-03-09T18:00:00Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2503.01234v1</id>
    <published>2025-03-09T18:00:00Z</published>
    <title>Duplicate</title>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2502.00001v2</id>
    <published>2025-02-01T00:00:00Z</published>
    <updated>2025-02-02T00:00:00Z</updated>
    <title>Old Paper</title>
    <summary>Old.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2503.05555v1</id>
    <published>not-a-date</published>
    <title>Broken date</title>
  </entry>
</feed>`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient(types.FetchConfig{
		HTTP:       types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		BaseURL:    ts.URL,
		MaxRetries: 2,
	}, nil)
	c.SetClock(func() time.Time { return fixedNow })
	return c
}

func TestFetch_ParsesAndFilters(t *testing.T) {
	var gotQuery url.Values
	var gotUA string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, sampleFeedXML)
	})

	papers, err := c.Fetch(context.Background(), Query{
		Categories: []string{"cs.AI", "cs.LG"},
		MaxResults: 25,
		DaysBack:   7,
	})
	require.NoError(t, err)

	// Missing id and broken date are skipped, the duplicate is collapsed,
	// and the February paper falls outside the 7-day window.
	require.Len(t, papers, 1)
	p := papers[0]
	assert.Equal(t, "2503.01234v1", p.ID)
	assert.Equal(t, "A Novel Approach to Agents", p.Title)
	assert.Equal(t, "We present agents.", p.Abstract)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, p.Categories)
	assert.Equal(t, "cs.AI", p.PrimaryCategory)
	assert.Equal(t, "https://arxiv.org/pdf/2503.01234v1.pdf", p.PDFURL)
	assert.Equal(t, "https://arxiv.org/abs/2503.01234v1", p.ArxivURL)
	assert.False(t, p.Updated.Before(p.Published))

	assert.Equal(t, "(cat:cs.AI OR cat:cs.LG)", gotQuery.Get("search_query"))
	assert.Equal(t, "25", gotQuery.Get("max_results"))
	assert.Equal(t, "submittedDate", gotQuery.Get("sortBy"))
	assert.Equal(t, "descending", gotQuery.Get("sortOrder"))
	assert.Equal(t, "test/0.1", gotUA)
}

func TestFetch_NoLookbackKeepsOldPapers(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleFeedXML)
	})

	papers, err := c.Fetch(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestFetch_ErrorsDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "rate limited past retries",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed xml",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "<feed><entry>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, tt.handler)
			papers, err := c.Fetch(context.Background(), Query{Categories: []string{"cs.AI"}})
			assert.Error(t, err)
			assert.NotNil(t, papers)
			assert.Empty(t, papers)
		})
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	c := NewClient(types.FetchConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	papers, err := c.Fetch(context.Background(), Query{})
	assert.Error(t, err)
	assert.Empty(t, papers)
}

func TestFetchAIPapers_UsesPresets(t *testing.T) {
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	})

	papers, err := c.FetchAIPapers(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.Contains(t, gotQuery, "cat:stat.ML")
	assert.Contains(t, gotQuery, `(ti:"LLM" OR abs:"LLM")`)
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		keywords   []string
		want       string
	}{
		{
			name: "default category",
			want: "cat:cs.AI",
		},
		{
			name:       "categories only",
			categories: []string{"cs.AI", "cs.CL"},
			want:       "(cat:cs.AI OR cat:cs.CL)",
		},
		{
			name:     "keywords only",
			keywords: []string{"agents", "large language model"},
			want:     `((ti:"agents" OR abs:"agents") AND (ti:"large language model" OR abs:"large language model"))`,
		},
		{
			name:       "both",
			categories: []string{"cs.LG"},
			keywords:   []string{"diffusion"},
			want:       `(cat:cs.LG) AND ((ti:"diffusion" OR abs:"diffusion"))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSearchQuery(tt.categories, tt.keywords))
		})
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041v1"},
		{"https://arxiv.org/abs/2301.12345", "2301.12345"},
		{"http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001v1"},
		{"urn:something/2301.00001v3", "2301.00001v3"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArxivID(tt.input))
		})
	}
}

func TestParseEntry_UpdatedNeverBeforePublished(t *testing.T) {
	p, err := parseEntry(arxivEntry{
		ID:        "http://arxiv.org/abs/2503.00001v1",
		Published: "2025-03-09T00:00:00Z",
		Updated:   "2025-03-01T00:00:00Z",
	}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, p.Published, p.Updated)
}

func TestParseEntry_MissingDates(t *testing.T) {
	p, err := parseEntry(arxivEntry{ID: "http://arxiv.org/abs/2503.00002v1"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, p.Published)
	assert.Equal(t, fixedNow, p.Updated)
}
