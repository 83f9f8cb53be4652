package bot

import (
	"fmt"
	"strings"

	"reel_tracker/internal/provider"
)

// BulkRow is one parsed creator line from a /bulk message.
type BulkRow struct {
	Name          string
	ProfileURL    string
	FollowersText string
	PostURL       string
}

// BulkMessage is the parsed body of a /bulk command.
type BulkMessage struct {
	Campaign string
	Rows     []BulkRow
	// LineErrors carries per-line problems; the import continues past them.
	LineErrors []string
}

// bulk column headers, matched case-insensitively.
const (
	colName      = "name"
	colProfile   = "profile link"
	colFollowers = "followers"
	colLiveLink  = "live link"
)

// ParseBulkMessage parses a /bulk payload: the first line names the
// campaign, the second line is a tab-separated header, every following
// line is one creator row. Bad rows are collected as line errors instead
// of aborting the import.
func ParseBulkMessage(text string) (BulkMessage, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return BulkMessage{}, fmt.Errorf("usage: /bulk <campaign>\\n<tab-separated header>\\n<rows>")
	}

	campaign := strings.TrimSpace(lines[0])
	if campaign == "" {
		return BulkMessage{}, fmt.Errorf("first line must name the campaign")
	}

	cols := map[string]int{}
	for i, h := range strings.Split(lines[1], "\t") {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colName]; !ok {
		return BulkMessage{}, fmt.Errorf("header is missing the %q column", colName)
	}
	if _, ok := cols[colLiveLink]; !ok {
		return BulkMessage{}, fmt.Errorf("header is missing the %q column", colLiveLink)
	}

	msg := BulkMessage{Campaign: campaign}
	for i, line := range lines[2:] {
		lineNo := i + 3
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		row := BulkRow{
			Name:          cell(fields, cols, colName),
			ProfileURL:    cell(fields, cols, colProfile),
			FollowersText: cell(fields, cols, colFollowers),
			PostURL:       provider.NormalizeURL(cell(fields, cols, colLiveLink)),
		}
		if row.Name == "" {
			msg.LineErrors = append(msg.LineErrors, fmt.Sprintf("line %d: missing creator name", lineNo))
			continue
		}
		if row.PostURL == "" {
			msg.LineErrors = append(msg.LineErrors, fmt.Sprintf("line %d: missing live link", lineNo))
			continue
		}
		if provider.Shortcode(row.PostURL) == "" {
			msg.LineErrors = append(msg.LineErrors, fmt.Sprintf("line %d: %q is not an instagram post link", lineNo, row.PostURL))
			continue
		}
		msg.Rows = append(msg.Rows, row)
	}

	if len(msg.Rows) == 0 && len(msg.LineErrors) == 0 {
		return BulkMessage{}, fmt.Errorf("no creator rows found")
	}
	return msg, nil
}

func cell(fields []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
