package printer

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// TimeAgo returns a human-readable relative time string in UTC.
// Examples: "5 seconds ago (UTC)", "2 minutes ago (UTC)", "3 hours ago (UTC)".
func TimeAgo(t time.Time) string {
	now := time.Now().UTC()
	t = t.UTC()

	if t.After(now) {
		return "in the future (UTC)"
	}

	return humanize.RelTime(t, now, "ago", "from now") + " (UTC)"
}

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// RunDuration returns how long a finished run took, "-" while it runs.
func RunDuration(run model.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.CreatedAt).Round(time.Second).String()
}
