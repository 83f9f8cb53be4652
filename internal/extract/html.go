package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reel_tracker/internal/model"
)

// Pattern chains for values embedded in the page's script data, most
// specific first. Each chain is tried left to right; the first pattern whose
// capture coerces to a number wins.
var (
	likePatterns = compileAll(
		`"edge_media_preview_like"\s*:\s*\{\s*"count"\s*:\s*(\d+)`,
		`"like_count"\s*:\s*(\d+)`,
		`"likesCount"\s*:\s*(\d+)`,
		`"likes"\s*:\s*\{\s*"count"\s*:\s*(\d+)`,
		`content="([\d,]+)\s+likes`,
	)
	commentPatterns = compileAll(
		`"edge_media_to_comment"\s*:\s*\{\s*"count"\s*:\s*(\d+)`,
		`"comment_count"\s*:\s*(\d+)`,
		`"commentsCount"\s*:\s*(\d+)`,
		`"comments"\s*:\s*\{\s*"count"\s*:\s*(\d+)`,
		`likes,\s*([\d,]+)\s+comments`,
		`([\d,]+)\s+comments`,
	)
	viewPatterns = compileAll(
		`"video_view_count"\s*:\s*(\d+)`,
		`"video_play_count"\s*:\s*(\d+)`,
		`"videoPlayCount"\s*:\s*(\d+)`,
		`"play_count"\s*:\s*(\d+)`,
		`"videoViewCount"\s*:\s*(\d+)`,
		`"interactionStatistic"\s*:\s*\[.*?"WatchAction".*?"userInteractionCount"\s*:\s*(\d+)`,
	)

	// Natural-language phrases like "1.2k likes" rendered into the page.
	likePhraseRe    = regexp.MustCompile(`(?i)([0-9][0-9,\.]*\s*[kmb]?)\s+(?:likes|like)\b`)
	commentPhraseRe = regexp.MustCompile(`(?i)([0-9][0-9,\.]*\s*[kmb]?)\s+(?:comments|comment)\b`)
	viewPhraseRe    = regexp.MustCompile(`(?i)([0-9][0-9,\.]*\s*[kmb]?)\s+(?:views|view|plays|play)\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return res
}

// FirstPatternNumber applies a pattern chain to text and returns the first
// capture that coerces to a number.
func FirstPatternNumber(text string, patterns []*regexp.Regexp) *int64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n := Number(m[1]); n != nil {
				return n
			}
		}
	}
	return nil
}

func phraseNumber(text string, re *regexp.Regexp) *int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return Number(m[1])
}

// FromHTML extracts a best-effort metrics triple from a raw HTML document.
// Each field is resolved independently: script-data patterns first, then
// compact-number phrases, then ld+json interaction statistics. A triple with
// all fields nil is not an error here; callers decide what that means.
func FromHTML(html string) model.Metrics {
	m := model.Metrics{
		Likes:    FirstPatternNumber(html, likePatterns),
		Comments: FirstPatternNumber(html, commentPatterns),
		Views:    FirstPatternNumber(html, viewPatterns),
	}

	if m.Likes == nil {
		m.Likes = phraseNumber(html, likePhraseRe)
	}
	if m.Comments == nil {
		m.Comments = phraseNumber(html, commentPhraseRe)
	}
	if m.Views == nil {
		m.Views = phraseNumber(html, viewPhraseRe)
	}

	ld := LinkedDataMetrics(html)
	if m.Likes == nil {
		m.Likes = ld.Likes
	}
	if m.Comments == nil {
		m.Comments = ld.Comments
	}
	if m.Views == nil {
		m.Views = ld.Views
	}

	return m
}

// LinkedDataMetrics scans application/ld+json script blocks in document
// order and maps interactionStatistic entries to metric fields by the
// interaction type name. The first match per field wins.
func LinkedDataMetrics(html string) model.Metrics {
	var m model.Metrics

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return m
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		stats, ok := data["interactionStatistic"].([]any)
		if !ok {
			return
		}
		for _, entry := range stats {
			stat, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			value := Number(stat["userInteractionCount"])
			if value == nil {
				continue
			}
			name := interactionName(stat["interactionType"])
			switch {
			case strings.Contains(name, "like") && m.Likes == nil:
				m.Likes = value
			case strings.Contains(name, "comment") && m.Comments == nil:
				m.Comments = value
			case (strings.Contains(name, "watch") || strings.Contains(name, "view") || strings.Contains(name, "play")) && m.Views == nil:
				m.Views = value
			}
		}
	})

	return m
}

func interactionName(v any) string {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := t["@type"].(string); ok {
			return strings.ToLower(s)
		}
	case string:
		return strings.ToLower(t)
	}
	return ""
}
