package display

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrison/rgrep/internal/models"
)

// RenderSummary writes the one-line statistics of a run, e.g.
// "12 matches in 40 entries (38 tasks, 0 failed), 1.2 MB scanned in 15ms".
func RenderSummary(out io.Writer, result models.RunResult) {
	fmt.Fprintf(out, "%s %s in %s %s (%s %s, %d failed), %s scanned in %s\n",
		humanize.Comma(result.Matches), plural(result.Matches, "match", "matches"),
		humanize.Comma(int64(result.EntriesVisited)), plural(int64(result.EntriesVisited), "entry", "entries"),
		humanize.Comma(int64(result.TasksSpawned)), plural(int64(result.TasksSpawned), "task", "tasks"),
		result.TasksFailed,
		humanize.Bytes(uint64(result.BytesScanned)),
		result.Duration.Round(time.Millisecond),
	)
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
