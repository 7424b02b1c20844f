package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		want model.Category
	}{
		{"https://acme.com", model.CategoryHome},
		{"https://acme.com/", model.CategoryHome},
		{"https://acme.com/index.html", model.CategoryHome},
		{"https://acme.com/about-us", model.CategoryAbout},
		{"https://acme.com/our-team", model.CategoryAbout},
		{"https://acme.com/services/seo", model.CategoryServices},
		{"https://acme.com/capabilities", model.CategoryServices},
		{"https://acme.com/case-studies/x", model.CategoryCases},
		{"https://acme.com/our-work", model.CategoryCases},
		{"https://acme.com/portfolio", model.CategoryPortfolio},
		{"https://acme.com/clients", model.CategoryClients},
		{"https://acme.com/partners", model.CategoryClients},
		{"https://acme.com/blog/post-1", model.CategoryBlog},
		{"https://acme.com/insights", model.CategoryBlog},
		{"https://acme.com/press", model.CategoryNews},
		{"https://acme.com/NEWS/2024", model.CategoryNews},
		{"https://acme.com/contact", model.CategoryGeneric},
		// first matching row wins: "team" beats "blog".
		{"https://acme.com/blog/team-offsite", model.CategoryAbout},
		// "success" is a cases keyword even inside a news path.
		{"https://acme.com/news/success", model.CategoryCases},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyURL(tt.url))
		})
	}
}

func TestClassifyURL_Total(t *testing.T) {
	for _, u := range []string{"", "::::", "not a url", "https://"} {
		assert.True(t, ClassifyURL(u).IsValid(), u)
	}
}
