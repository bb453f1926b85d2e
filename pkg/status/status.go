// Package status aggregates and formats generation run history for CLI output.
package status

import (
	"fmt"

	"github.com/imgrun/imgrun"
)

// Default number of history entries to show.
const defaultHistoryLimit = 10

// HistoryItem is a single recorded generation run.
// RanAt is an RFC3339 timestamp in UTC. ResponseBody may be nil when body
// saving was disabled or the run succeeded.
type HistoryItem struct {
	ID           int
	Job          string
	StatusCode   int
	OutputPath   string
	ImageBytes   int
	Failed       bool
	RanAt        string
	ResponseBody *string
}

// Info aggregates status information: total runs, the latest run, and history.
type Info struct {
	Total   int
	Latest  *HistoryItem
	History []HistoryItem
}

// FromStore collects status information from an opened store.
func FromStore(st *imgrun.Store) (Info, error) {
	total, err := st.CountRuns()
	if err != nil {
		return Info{}, err
	}
	runs, err := st.ListRuns()
	if err != nil {
		return Info{}, err
	}
	items := make([]HistoryItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, HistoryItem{
			ID:           r.ID,
			Job:          r.Job,
			StatusCode:   r.StatusCode,
			OutputPath:   r.OutputPath,
			ImageBytes:   r.ImageBytes,
			Failed:       r.Failed,
			RanAt:        r.RanAt,
			ResponseBody: r.ResponseBody,
		})
	}
	info := Info{Total: total, History: items}
	if len(items) > 0 {
		latest := items[len(items)-1]
		info.Latest = &latest
	}
	return info, nil
}

// FromOptions opens a store using the provided options, collects status, and closes it.
func FromOptions(dir string, cfg *imgrun.StoreConfig) (Info, error) {
	st, err := imgrun.OpenStoreFromOptions(dir, cfg)
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = st.Close() }()
	return FromStore(st)
}

// FormatHuman returns a human-friendly multiline string for CLI output.
// history=false prints only the total and latest run; history=true appends a
// formatted history section.
func (i Info) FormatHuman(history bool) string {
	return i.FormatHumanWithLimit(history, defaultHistoryLimit, false)
}

// FormatHumanWithLimit prints status; when history=true entries are printed
// newest-first up to limit. all=true ignores the limit.
func (i Info) FormatHumanWithLimit(history bool, limit int, all bool) string {
	base := fmt.Sprintf("runs: %d\n", i.Total)
	if i.Latest != nil {
		base += fmt.Sprintf("latest: %s\n", formatItem(*i.Latest))
	} else {
		base += "latest: none\n"
	}
	if !history {
		return base
	}
	if len(i.History) == 0 {
		return base + "history: \n"
	}
	rev := make([]HistoryItem, len(i.History))
	for idx := range i.History {
		rev[len(i.History)-1-idx] = i.History[idx]
	}
	items := rev
	if !all {
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		if len(items) > limit {
			items = items[:limit]
		}
	}
	out := base + "history:\n"
	for _, h := range items {
		out += formatItem(h) + "\n"
	}
	return out
}

func formatItem(h HistoryItem) string {
	if h.Failed {
		return fmt.Sprintf("#%d job=%s code=%d failed=true at=%s", h.ID, h.Job, h.StatusCode, h.RanAt)
	}
	return fmt.Sprintf("#%d job=%s code=%d saved=%s bytes=%d at=%s", h.ID, h.Job, h.StatusCode, h.OutputPath, h.ImageBytes, h.RanAt)
}
