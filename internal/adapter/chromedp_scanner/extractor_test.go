package chromedp_scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/sitewatch-service/internal/entity"
)

const noticePage = `<!DOCTYPE html>
<html>
<head><title>Notices</title><style>.bharti { color: red }</style></head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Latest   notices</h1>
  <ul>
    <li>Annual report <a href="/files/report.pdf">download</a></li>
    <li>Bharti 2024 recruitment <b>notification</b> released</li>
    <li><a href="/files/report.pdf#page=2">same report</a></li>
    <li><a href="https://cdn.example.org/Schedule.PDF?v=3">schedule</a></li>
    <li><a href="/about.html">about</a></li>
  </ul>
  <script>var keyword = "bharti";</script>
</body>
</html>`

func TestExtractPage_KeywordContextAndLinks(t *testing.T) {
	result, err := ExtractPage("https://example.org/files/index.html", noticePage, "BHARTI")
	require.NoError(t, err)

	assert.Equal(t, entity.ScanMatched, result.Outcome)
	assert.True(t, result.Found())
	assert.Equal(t, "Bharti 2024 recruitment notification released", result.Context)
	assert.Equal(t, []string{
		"https://example.org/files/report.pdf",
		"https://cdn.example.org/Schedule.PDF?v=3",
	}, result.PDFLinks)
	assert.Equal(t, "https://example.org/files/index.html", result.FinalURL)
	assert.Len(t, result.PageHash, 64)
}

func TestExtractPage_IgnoresScriptText(t *testing.T) {
	page := `<html><body><p>Nothing here</p><script>var s = "bharti";</script><noscript>bharti</noscript></body></html>`

	result, err := ExtractPage("https://example.org", page, "bharti")
	require.NoError(t, err)

	assert.Equal(t, entity.ScanNoMatch, result.Outcome)
	assert.Empty(t, result.Context)
}

func TestExtractPage_EmptyKeywordNeverMatches(t *testing.T) {
	result, err := ExtractPage("https://example.org", noticePage, "  ")
	require.NoError(t, err)

	assert.Equal(t, entity.ScanNoMatch, result.Outcome)
	assert.NotEmpty(t, result.PageHash)
}

func TestExtractPage_ErrorPages(t *testing.T) {
	pages := map[string]string{
		"iis default":  `<html><body><h2>Default Error Page</h2><p>bharti</p></body></html>`,
		"aspx":         `<html><body><p>/error.aspx?aspxerrorpath=/notices</p><p>bharti</p></body></html>`,
		"not found":    `<html><body><h1>Page Not Found</h1><p>bharti</p></body></html>`,
		"status code":  `<html><body><h1>404</h1><p>bharti</p></body></html>`,
		"generic fail": `<html><body><p>An error occurred while processing your request.</p><a href="/x.pdf">bharti</a></body></html>`,
	}

	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			result, err := ExtractPage("https://example.org", page, "bharti")
			require.NoError(t, err)

			assert.Equal(t, entity.ScanErrorPage, result.Outcome)
			assert.False(t, result.Found())
			assert.Empty(t, result.PDFLinks)
			assert.Empty(t, result.PageHash)
		})
	}
}

func TestExtractPage_ContextTruncated(t *testing.T) {
	long := "bharti " + strings.Repeat("é", 400)
	page := `<html><body><p>` + long + `</p></body></html>`

	result, err := ExtractPage("https://example.org", page, "bharti")
	require.NoError(t, err)

	assert.Equal(t, 300, len([]rune(result.Context)))
	assert.True(t, strings.HasPrefix(result.Context, "bharti "))
}

func TestExtractPage_HashIgnoresWhitespace(t *testing.T) {
	a, err := ExtractPage("https://example.org", `<html><body><p>Hello   world</p></body></html>`, "")
	require.NoError(t, err)
	b, err := ExtractPage("https://example.org", "<html><body>\n<p>Hello\tworld</p>\n</body></html>", "")
	require.NoError(t, err)
	c, err := ExtractPage("https://example.org", `<html><body><p>Hello there</p></body></html>`, "")
	require.NoError(t, err)

	assert.Equal(t, a.PageHash, b.PageHash)
	assert.NotEqual(t, a.PageHash, c.PageHash)
}

func TestVisibleLines(t *testing.T) {
	page := `<html><body><div>first <span>line</span></div>second<br>third<!-- hidden --></body></html>`
	result, err := ExtractPage("https://example.org", page, "line")
	require.NoError(t, err)

	assert.Equal(t, "first line", result.Context)
}
