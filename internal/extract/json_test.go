package extract

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reel_tracker/internal/model"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return data
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    model.Metrics
	}{
		{
			name:    "flat payload",
			payload: `{"like_count": 10, "comment_count": 2, "play_count": 500}`,
			want:    model.Metrics{Likes: iptr(10), Comments: iptr(2), Views: iptr(500)},
		},
		{
			name: "nested under media item",
			payload: `{"graphql": {"shortcode_media": {"like_count": 77, "video_view_count": 1900}},
			           "status": "ok"}`,
			want: model.Metrics{Likes: iptr(77), Views: iptr(1900)},
		},
		{
			name:    "values inside a list",
			payload: `{"items": [{"likesCount": "3.5k", "commentsCount": 41}]}`,
			want:    model.Metrics{Likes: iptr(3500), Comments: iptr(41)},
		},
		{
			name:    "nothing known",
			payload: `{"status": "ok", "user": {"id": 1}}`,
			want:    model.Metrics{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromJSON(decode(t, tt.payload))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromJSON mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFirstKeyNumberPriority(t *testing.T) {
	// Both keys present in one map: the key list decides, not map order.
	data := decode(t, `{"video_play_count": 5, "play_count": 9}`)

	got := FirstKeyNumber(data, []string{"play_count", "video_play_count"})
	if diff := cmp.Diff(iptr(9), got); diff != "" {
		t.Errorf("FirstKeyNumber mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstKeyNumberSkipsUnparseable(t *testing.T) {
	// A matching key whose value cannot be coerced does not stop the search.
	data := decode(t, `{"like_count": "soon", "media": {"like_count": 12}}`)

	got := FirstKeyNumber(data, []string{"like_count"})
	if diff := cmp.Diff(iptr(12), got); diff != "" {
		t.Errorf("FirstKeyNumber mismatch (-want +got):\n%s", diff)
	}
}
