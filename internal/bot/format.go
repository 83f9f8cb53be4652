package bot

import (
	"fmt"
	"strings"

	"reel_tracker/internal/model"
)

// FormatPostList formats the tracked post roster for display.
func FormatPostList(posts []model.Post) string {
	if len(posts) == 0 {
		return "No posts tracked yet. Use /add or /bulk to start."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tracked posts (%d):\n", len(posts))
	for _, p := range posts {
		last := "never polled"
		if p.LastPolledAt != "" {
			last = "last polled " + p.LastPolledAt
		}
		fmt.Fprintf(&b, "\n#%d %s\n   every %ds, %s\n", p.ID, p.URL, p.PollIntervalSec, last)
	}
	return b.String()
}

// FormatDashboard formats the engagement dashboard for display.
func FormatDashboard(title string, d *model.Dashboard) string {
	if d.Totals.Posts == 0 {
		return fmt.Sprintf("%s: no posts tracked yet.", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Posts: %d | Likes: %d | Comments: %d | Views: %d\n",
		d.Totals.Posts, d.Totals.Likes, d.Totals.Comments, d.Totals.Views)

	if len(d.Campaigns) > 1 {
		b.WriteString("\nBy campaign:\n")
		for _, g := range d.Campaigns {
			fmt.Fprintf(&b, "  #%d %s: %d post(s), %d likes, %d comments, %d views\n",
				g.ID, g.Name, g.Posts, g.Likes, g.Comments, g.Views)
		}
	}

	b.WriteString("\nBy creator:\n")
	for _, g := range d.Creators {
		fmt.Fprintf(&b, "  %s: %d post(s), %d likes, %d comments, %d views\n",
			g.Name, g.Posts, g.Likes, g.Comments, g.Views)
	}

	b.WriteString("\nPosts:\n")
	for _, p := range d.Posts {
		fmt.Fprintf(&b, "  #%d %s [%s]\n    likes %s, comments %s, views %s\n",
			p.PostID, p.URL, p.Status,
			metric(p.Metrics.Likes), metric(p.Metrics.Comments), metric(p.Metrics.Views))
	}
	return b.String()
}

// FormatSnapshot formats the outcome of a single poll.
func FormatSnapshot(postID int64, s model.Snapshot) string {
	if s.Status == model.StatusError {
		return fmt.Sprintf("Post #%d poll failed:\n%s", postID, s.Error)
	}
	return fmt.Sprintf("Post #%d polled [%s]:\nlikes %s, comments %s, views %s",
		postID, s.Status,
		metric(s.Metrics.Likes), metric(s.Metrics.Comments), metric(s.Metrics.Views))
}

// FormatBulkReport summarizes a /bulk import.
func FormatBulkReport(campaign string, added int, lineErrs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import into %q: %d post(s) added", campaign, added)
	if len(lineErrs) == 0 {
		b.WriteString(".")
		return b.String()
	}
	fmt.Fprintf(&b, ", %d problem(s):\n", len(lineErrs))
	for _, e := range lineErrs {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	return b.String()
}

func metric(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
