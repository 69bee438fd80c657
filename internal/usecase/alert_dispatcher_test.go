package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/sitewatch-service/internal/entity"
	"go.uber.org/zap"
)

func pdfLinks(n int) []string {
	links := make([]string, n)
	for i := range links {
		links[i] = fmt.Sprintf("https://example.org/files/notice-%d.pdf", i+1)
	}
	return links
}

func TestDispatchKeyword_LimitsAttachments(t *testing.T) {
	events := &eventLog{}
	notifier := &fakeNotifier{events: events}
	fetcher := &fakeFetcher{events: events}
	d := NewAlertDispatcher(notifier, fetcher, zap.NewNop())

	site := &entity.Site{ID: 1, Name: "Portal", URL: "https://example.org", Keyword: "bharti"}
	d.DispatchKeyword(context.Background(), site, &entity.ScanResult{Outcome: entity.ScanMatched, PDFLinks: pdfLinks(5)})

	assert.Equal(t, []string{"text", "fetch", "document", "fetch", "document"}, events.all())
	assert.Equal(t, pdfLinks(2), fetcher.fetched)

	msgs := notifier.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, 3, strings.Count(msgs[0].message, ".pdf"), "only three links are listed")
	assert.Equal(t, "/tmp/downloads/notice-1.pdf", msgs[1].path)
	assert.Contains(t, msgs[1].message, "notice-1.pdf")
}

func TestDispatchKeyword_PrimaryAlertSurvivesDownloadFailures(t *testing.T) {
	events := &eventLog{}
	notifier := &fakeNotifier{events: events}
	fetcher := &fakeFetcher{events: events, err: errors.New("status 404")}
	d := NewAlertDispatcher(notifier, fetcher, zap.NewNop())

	site := &entity.Site{ID: 1, Name: "Portal", URL: "https://example.org", Keyword: "bharti"}
	d.DispatchKeyword(context.Background(), site, &entity.ScanResult{Outcome: entity.ScanMatched, PDFLinks: pdfLinks(5)})

	assert.Equal(t, []string{"text", "fetch", "fetch"}, events.all())
	require.Len(t, notifier.messages(), 1)
}

func TestDispatchKeyword_UsesScreenshot(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewAlertDispatcher(notifier, &fakeFetcher{}, zap.NewNop())

	site := &entity.Site{ID: 1, Name: "Portal", URL: "https://example.org", Keyword: "bharti"}
	d.DispatchKeyword(context.Background(), site, &entity.ScanResult{
		Outcome:    entity.ScanMatched,
		Screenshot: "screenshots/example_org_1700000000.png",
	})

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "photo", msgs[0].kind)
	assert.Equal(t, "screenshots/example_org_1700000000.png", msgs[0].path)
	assert.Contains(t, msgs[0].message, "New update found!")
}

func TestKeywordMessage(t *testing.T) {
	site := &entity.Site{Name: "R&D <Portal>", URL: "https://example.org/start", Keyword: "bharti"}
	scan := &entity.ScanResult{
		Outcome:  entity.ScanMatched,
		Context:  "Bharti 2024 <notice> released",
		FinalURL: "https://example.org/notices",
		PDFLinks: []string{"https://example.org/a.pdf", "https://example.org/b.pdf"},
	}

	msg := KeywordMessage(site, scan)

	assert.Contains(t, msg, "R&amp;D &lt;Portal&gt;")
	assert.Contains(t, msg, "https://example.org/notices")
	assert.NotContains(t, msg, "https://example.org/start")
	assert.Contains(t, msg, "Bharti 2024 &lt;notice&gt; released")
	assert.Contains(t, msg, "https://example.org/a.pdf\nhttps://example.org/b.pdf")
}

func TestKeywordMessage_WithoutOptionalBlocks(t *testing.T) {
	site := &entity.Site{Name: "Portal", URL: "https://example.org", Keyword: "bharti"}

	msg := KeywordMessage(site, &entity.ScanResult{Outcome: entity.ScanMatched})

	assert.Contains(t, msg, "https://example.org")
	assert.NotContains(t, msg, "Context")
	assert.NotContains(t, msg, "PDF Links")
}

func TestDispatchError_Escapes(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewAlertDispatcher(notifier, &fakeFetcher{}, zap.NewNop())

	d.DispatchError(context.Background(), &entity.Site{Name: "Portal"}, "unexpected <EOF>")

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "🚨 <b>Website Error!</b>\n\nSite: Portal\nError: unexpected &lt;EOF&gt;", msgs[0].message)
}

func TestSendTest(t *testing.T) {
	notifier := &fakeNotifier{}
	d := NewAlertDispatcher(notifier, &fakeFetcher{}, zap.NewNop())

	require.NoError(t, d.SendTest(context.Background()))
	require.Len(t, notifier.messages(), 1)

	notifier.err = errors.New("unauthorized")
	assert.EqualError(t, d.SendTest(context.Background()), "unauthorized")
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "-", shortHash(""))
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
}

func TestDispatchKeyword_FallsBackToTextWhenPhotoFails(t *testing.T) {
	events := &eventLog{}
	notifier := &fakeNotifier{events: events, failOn: map[string]error{"photo": errors.New("Bad Request: can't parse entities")}}
	d := NewAlertDispatcher(notifier, &fakeFetcher{events: events}, zap.NewNop())

	site := &entity.Site{ID: 1, Name: "Portal", URL: "https://example.org", Keyword: "bharti"}
	d.DispatchKeyword(context.Background(), site, &entity.ScanResult{
		Outcome:    entity.ScanMatched,
		Context:    "bharti " + strings.Repeat("R&D ", 70),
		Screenshot: "screenshots/example_org_1700000000.png",
		PDFLinks:   []string{"https://example.org/a.pdf?x=1" + strings.Repeat("&y=2", 40)},
	})

	assert.Equal(t, []string{"photo", "text", "fetch", "document"}, events.all())
	msgs := notifier.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, msgs[0].message, msgs[1].message)
	assert.Contains(t, msgs[1].message, "R&amp;D")
}
