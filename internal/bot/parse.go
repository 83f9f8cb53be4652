package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reel_tracker/internal/provider"
)

const (
	minIntervalSec     = 60
	maxIntervalSec     = 86400
	defaultIntervalSec = 86400
)

// AddArgs holds the parsed arguments of the /add command.
type AddArgs struct {
	Campaign    string
	Creator     string
	URL         string
	IntervalSec int
}

// ParseAddArgs parses pipe-separated /add arguments.
// Format: <campaign> | <creator> | <post url> [| interval_sec]
func ParseAddArgs(args string) (AddArgs, error) {
	parts := strings.Split(args, "|")
	if len(parts) < 3 || len(parts) > 4 {
		return AddArgs{}, fmt.Errorf("usage: /add <campaign> | <creator> | <post url> [| interval_sec]")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	campaign, creator, rawURL := parts[0], parts[1], parts[2]
	if campaign == "" {
		return AddArgs{}, fmt.Errorf("campaign name cannot be empty")
	}
	if creator == "" {
		return AddArgs{}, fmt.Errorf("creator cannot be empty")
	}

	url := provider.NormalizeURL(rawURL)
	if !strings.Contains(url, "instagram.com/") {
		return AddArgs{}, fmt.Errorf("post URL must be an instagram.com link")
	}
	if provider.Shortcode(url) == "" {
		return AddArgs{}, fmt.Errorf("post URL must point to a /reel/ or /p/ post")
	}

	interval := defaultIntervalSec
	if len(parts) == 4 && parts[3] != "" {
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < minIntervalSec || n > maxIntervalSec {
			return AddArgs{}, fmt.Errorf("interval must be between %d and %d seconds", minIntervalSec, maxIntervalSec)
		}
		interval = n
	}

	return AddArgs{
		Campaign:    campaign,
		Creator:     creator,
		URL:         url,
		IntervalSec: interval,
	}, nil
}

var handleSlugRe = regexp.MustCompile(`\s+`)

// CreatorHandle derives a stable creator handle from a profile URL, an
// @handle, or a plain display name.
func CreatorHandle(raw string) string {
	raw = strings.TrimSpace(raw)
	if h := provider.ProfileHandle(raw); h != "" {
		return h
	}
	if strings.HasPrefix(raw, "@") {
		return strings.TrimPrefix(raw, "@")
	}
	return handleSlugRe.ReplaceAllString(strings.ToLower(raw), "_")
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}
