package chromedp_scanner

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/pkg/utils"
)

// maxContextRunes bounds the keyword context quoted in alerts.
const maxContextRunes = 300

// errorPhrases mark server error and placeholder pages. A page containing any
// of them is never reported as a keyword match.
var errorPhrases = []string{
	"default error",
	"please review the following url",
	"aspxerrorpath",
	"page not found",
	"404",
	"error occurred",
}

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
	"#comment": true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "td": true, "th": true, "ul": true, "option": true,
}

// ExtractPage inspects the rendered HTML of a page loaded from finalURL.
func ExtractPage(finalURL, htmlContent, keyword string) (*entity.ScanResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	result := &entity.ScanResult{Outcome: entity.ScanNoMatch, FinalURL: finalURL}

	lines := visibleLines(doc.Find("body"))
	text := strings.Join(lines, "\n")
	if isErrorPage(text) {
		result.Outcome = entity.ScanErrorPage
		return result, nil
	}

	if keyword = strings.TrimSpace(keyword); keyword != "" {
		if line, ok := findKeyword(lines, keyword); ok {
			result.Outcome = entity.ScanMatched
			result.Context = truncateRunes(line, maxContextRunes)
		}
	}

	result.PDFLinks = pdfLinks(doc, finalURL)
	result.PageHash = utils.HashContent(strings.Join(lines, " "))
	return result, nil
}

// visibleLines renders the text of sel roughly the way a browser lays it out:
// block elements start new lines, and whitespace inside a line is collapsed.
func visibleLines(sel *goquery.Selection) []string {
	var sb strings.Builder
	collectText(sel, &sb)

	var lines []string
	for _, raw := range strings.Split(sb.String(), "\n") {
		if line := strings.Join(strings.Fields(raw), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func collectText(sel *goquery.Selection, sb *strings.Builder) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			sb.WriteString(node.Text())
		case skippedTags[name]:
		case name == "br":
			sb.WriteByte('\n')
		default:
			block := blockTags[name]
			if block {
				sb.WriteByte('\n')
			}
			collectText(node, sb)
			if block {
				sb.WriteByte('\n')
			}
		}
	})
}

func isErrorPage(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range errorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// findKeyword returns the first line containing keyword, case-insensitively.
func findKeyword(lines []string, keyword string) (string, bool) {
	needle := strings.ToLower(keyword)
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			return line, true
		}
	}
	return "", false
}

// pdfLinks collects unique absolute PDF links in order of first appearance.
func pdfLinks(doc *goquery.Document, finalURL string) []string {
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil || !utils.IsPDFURL(abs) || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
