package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Content_BasicArticle(t *testing.T) {
	d := NewDefault()
	html, err := d.Content(ContentData{
		SrcRelPath: "posts/hello.mdwn",
		Title:      "Hello World",
		Tags:       []string{"go", "blogging"},
		BodyHTML:   "<p>body</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Hello World</h1>")
	assert.Contains(t, html, "<p>body</p>")
	assert.Contains(t, html, "go")
	assert.Contains(t, html, "blogging")
}

func TestDefault_Content_NoTitleOmitsHeading(t *testing.T) {
	d := NewDefault()
	html, err := d.Content(ContentData{BodyHTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "<h1>"))
}

func TestDefault_Content_NeighborsRendered(t *testing.T) {
	d := NewDefault()
	html, err := d.Content(ContentData{
		Title:    "Middle",
		BodyHTML: "<p>x</p>",
		Prev:     &NeighborRef{Title: "Before", DstRelPath: "before.html"},
		Next:     &NeighborRef{Title: "After", DstRelPath: "after.html"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `href="before.html"`)
	assert.Contains(t, html, "Before")
	assert.Contains(t, html, `href="after.html"`)
	assert.Contains(t, html, "After")
}

func TestDefault_Standalone_WrapsContent(t *testing.T) {
	d := NewDefault()
	html, err := d.Standalone(StandaloneData{Title: "My Page", ContentHTML: "<article>x</article>"})
	require.NoError(t, err)
	assert.Contains(t, html, "<title>My Page</title>")
	assert.Contains(t, html, "<article>x</article>")
}

func TestDefault_Deterministic(t *testing.T) {
	d := NewDefault()
	data := ContentData{Title: "T", BodyHTML: "<p>b</p>", Tags: []string{"a"}}
	first, err := d.Content(data)
	require.NoError(t, err)
	second, err := d.Content(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
