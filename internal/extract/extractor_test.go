package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Student visa (subclass 500)</title>
<meta property="article:modified_time" content="2024-03-18T09:30:00Z">
</head>
<body>
<header>Department of Home Affairs</header>
<nav><a href="/visas">Visas</a><a href="/citizenship">Citizenship</a></nav>
<main>
<h1>Student visa (subclass 500)</h1>
<p>This visa lets you stay in Australia to study full-time.</p>
<p>You must be enrolled in a course of study.</p>
<script>trackPageView();</script>
</main>
<aside class="sidebar">Related links</aside>
<footer>Copyright</footer>
</body>
</html>`

func TestExtract_MainContent(t *testing.T) {
	res, err := Extract(samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Student visa (subclass 500)", res.Title)
	assert.Contains(t, res.Content, "stay in Australia to study full-time")
	assert.Contains(t, res.Content, "enrolled in a course of study")

	// Boilerplate must not leak into the content.
	assert.NotContains(t, res.Content, "Department of Home Affairs")
	assert.NotContains(t, res.Content, "Citizenship")
	assert.NotContains(t, res.Content, "Related links")
	assert.NotContains(t, res.Content, "Copyright")
	assert.NotContains(t, res.Content, "trackPageView")
}

func TestExtract_ParagraphBoundariesPreserved(t *testing.T) {
	res, err := Extract(samplePage)
	require.NoError(t, err)

	paras := strings.Split(res.Content, "\n\n")
	assert.GreaterOrEqual(t, len(paras), 3, "headings and paragraphs should be blank-line separated")
}

func TestExtract_PublishedFromMeta(t *testing.T) {
	res, err := Extract(samplePage)
	require.NoError(t, err)

	require.NotNil(t, res.PublishedAt)
	want := time.Date(2024, 3, 18, 9, 30, 0, 0, time.UTC)
	assert.True(t, res.PublishedAt.Equal(want), "got %s", res.PublishedAt)
}

func TestExtract_DatetimeAttributeWins(t *testing.T) {
	page := `<html><head><title>News</title>
<meta property="article:modified_time" content="2023-01-01T00:00:00Z"></head>
<body><main><p>Migration program update.</p>
<time datetime="2024-07-01">1 July 2024</time></main></body></html>`

	res, err := Extract(page)
	require.NoError(t, err)
	require.NotNil(t, res.PublishedAt)
	assert.Equal(t, 2024, res.PublishedAt.Year())
	assert.Equal(t, time.July, res.PublishedAt.Month())
}

// TestExtract_BoilerplateTimestampIgnored verifies a <time> inside
// stripped chrome (e.g. a footer copyright date) cannot shadow the
// article's own timestamp.
func TestExtract_BoilerplateTimestampIgnored(t *testing.T) {
	page := `<html><head><title>News</title>
<meta property="article:modified_time" content="2024-03-18T09:30:00Z"></head>
<body><nav><time datetime="1999-01-01">archive</time></nav>
<main><p>Migration program update.</p></main>
<footer><time datetime="2001-01-01">© 2001</time></footer></body></html>`

	res, err := Extract(page)
	require.NoError(t, err)
	require.NotNil(t, res.PublishedAt)
	assert.Equal(t, 2024, res.PublishedAt.Year())
	assert.Equal(t, time.March, res.PublishedAt.Month())
}

func TestExtract_NoTimestamp(t *testing.T) {
	res, err := Extract(`<html><head><title>Plain</title></head><body><main><p>Text.</p></main></body></html>`)
	require.NoError(t, err)
	assert.Nil(t, res.PublishedAt)
}

func TestExtract_UnparseableTimestampAbsent(t *testing.T) {
	res, err := Extract(`<html><body><main><time datetime="soonish">soon</time><p>Text.</p></main></body></html>`)
	require.NoError(t, err)
	assert.Nil(t, res.PublishedAt)
}

func TestExtract_BodyFallbackWithoutMain(t *testing.T) {
	page := `<html><head><title>Migration Act 1958</title></head>
<body><div class="content"><p>An Act relating to the entry into Australia.</p></div></body></html>`

	res, err := Extract(page)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "entry into Australia")
}

func TestExtract_EmptyMainFallsBackToBody(t *testing.T) {
	page := `<html><body><main></main><p>Body text survives.</p></body></html>`

	res, err := Extract(page)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Body text survives")
}
