package extract

import (
	"sort"

	"reel_tracker/internal/model"
)

// Known field names per metric in provider JSON payloads, highest
// priority first.
var (
	likeKeys    = []string{"like_count", "likes_count", "likesCount"}
	commentKeys = []string{"comment_count", "comments_count", "commentsCount"}
	viewKeys    = []string{"play_count", "video_view_count", "video_play_count", "videoPlayCount", "videoViewCount"}
)

// FromJSON extracts a metrics triple from a decoded JSON payload by
// recursively searching for each field's known key names.
func FromJSON(data any) model.Metrics {
	return model.Metrics{
		Likes:    FirstKeyNumber(data, likeKeys),
		Comments: FirstKeyNumber(data, commentKeys),
		Views:    FirstKeyNumber(data, viewKeys),
	}
}

// FirstKeyNumber walks a decoded JSON tree (maps and slices) and returns the
// first value found under any of the given keys that coerces to a number.
// Within a single map, key-list order decides priority; nested maps are
// visited in sorted-key order so the search is deterministic.
func FirstKeyNumber(data any, keys []string) *int64 {
	switch t := data.(type) {
	case map[string]any:
		for _, key := range keys {
			if v, ok := t[key]; ok {
				if n := Number(v); n != nil {
					return n
				}
			}
		}
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if n := FirstKeyNumber(t[name], keys); n != nil {
				return n
			}
		}
	case []any:
		for _, item := range t {
			if n := FirstKeyNumber(item, keys); n != nil {
				return n
			}
		}
	}
	return nil
}
