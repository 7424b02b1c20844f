package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllCategories(t *testing.T) {
	t.Parallel()

	cats := AllCategories()
	assert.Len(t, cats, 9)
	for _, c := range cats {
		assert.True(t, c.IsValid(), c)
	}
	assert.False(t, Category("pricing").IsValid())
}

func TestPriorityCategories(t *testing.T) {
	t.Parallel()

	cats := PriorityCategories()
	assert.Equal(t, CategoryNews, cats[0])
	assert.NotContains(t, cats, CategoryPortfolio)
}

func TestParseCategories(t *testing.T) {
	t.Parallel()

	got := ParseCategories([]string{" News", "cases", "pricing", ""})
	assert.Equal(t, []Category{CategoryNews, CategoryCases}, got)
	assert.Nil(t, ParseCategories(nil))
}

func TestPageMap_Failed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pages PageMap
		want  bool
	}{
		{"nil", nil, true},
		{"empty", PageMap{}, true},
		{"sentinel only", ErrorPageMap("firecrawl_error: 502"), true},
		{"all pages errored", PageMap{"https://a.com": PageError("timeout")}, false},
		{"usable page", PageMap{"https://a.com": "hello"}, false},
		{"sentinel and usable page", PageMap{ErrorKey: "partial", "https://a.com": "hello"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pages.Failed())
		})
	}
}

func TestPageMap_Usable(t *testing.T) {
	t.Parallel()

	assert.False(t, PageMap(nil).Usable())
	assert.False(t, ErrorPageMap("firecrawl_error: 502").Usable())
	assert.False(t, PageMap{"https://a.com": PageError("timeout"), "https://a.com/about": PageError("blocked")}.Usable())
	assert.True(t, PageMap{"https://a.com": PageError("timeout"), "https://a.com/about": "hello"}.Usable())
	assert.True(t, PageMap{ErrorKey: "partial", "https://a.com": "hello"}.Usable())
}

func TestPageMap_PagesSkipsErrors(t *testing.T) {
	t.Parallel()

	m := PageMap{
		ErrorKey:               "partial",
		"https://a.com/b":      "second",
		"https://a.com":        "first",
		"https://a.com/broken": PageError("blocked_cloudflare"),
	}
	pages := m.Pages()
	assert.Equal(t, []Page{{URL: "https://a.com", Text: "first"}, {URL: "https://a.com/b", Text: "second"}}, pages)
	assert.Equal(t, "first\nsecond\n", m.Text())
	assert.Equal(t, "partial", m.Error())
}

func TestPageError(t *testing.T) {
	t.Parallel()

	e := PageError("timeout")
	assert.True(t, IsPageError(e))
	assert.False(t, IsPageError("plain text"))
}

func TestSignals(t *testing.T) {
	t.Parallel()

	var s Signals
	assert.Zero(t, s.Count())
	assert.Nil(t, s.Bucket(BucketHero))

	s.Hero = &Signal{Category: CategoryHome, Snippet: "We build bridges"}
	s.Recency = []Signal{{Category: CategoryNews, Snippet: "launched in 2024"}}
	s.Clients = []Signal{{Category: CategoryClients, Snippet: "trusted by Acme"}}

	assert.Equal(t, 3, s.Count())
	assert.Len(t, s.Bucket(BucketHero), 1)
	assert.Equal(t, s.Recency, s.Bucket(BucketRecency))
	assert.Nil(t, s.Bucket(Bucket("bogus")))
	assert.Equal(t, map[Category]bool{CategoryHome: true, CategoryNews: true, CategoryClients: true}, s.Categories())
}
