// Package rejection accumulates discarded candidates for a run and turns
// them into summaries, keyword frequencies and reports.
package rejection

import (
	"sort"
	"sync"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/service"
)

// Tracker is an append-only record of rejections. Records are never
// removed or modified once recorded.
type Tracker struct {
	records []model.RejectionRecord
	mu      sync.Mutex
}

var _ service.RejectionRecorder = (*Tracker)(nil)

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends a rejection. The ring is copied so later changes by the
// caller do not leak in.
func (t *Tracker) Record(record model.RejectionRecord) {
	if record.Ring != nil {
		record.Ring = append([]model.LatLon(nil), record.Ring...)
	}
	if record.Center != nil {
		c := *record.Center
		record.Center = &c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record)
}

// Records returns a copy of all records in recording order.
func (t *Tracker) Records() []model.RejectionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]model.RejectionRecord(nil), t.records...)
}

// TotalCount returns the number of records.
func (t *Tracker) TotalCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Summary returns the number of records per reason.
func (t *Tracker) Summary() map[model.RejectionReason]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[model.RejectionReason]int)
	for _, r := range t.records {
		out[r.Reason]++
	}
	return out
}

// UniqueReasons returns the reasons that occur at least once, in
// reporting order.
func (t *Tracker) UniqueReasons() []model.RejectionReason {
	summary := t.Summary()

	var out []model.RejectionReason
	for _, reason := range model.AllReasons() {
		if summary[reason] > 0 {
			out = append(out, reason)
		}
	}
	return out
}

// KeywordFrequency counts the offending tag values recorded for reason.
// Records without a keyword are not counted.
func (t *Tracker) KeywordFrequency(reason model.RejectionReason) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int)
	for _, r := range t.records {
		if r.Reason == reason && r.Keyword != "" {
			out[r.Keyword]++
		}
	}
	return out
}

// KeywordCount is one entry of a ranked keyword list.
type KeywordCount struct {
	Keyword string
	Count   int
}

// TopKeywords returns the n most frequent keywords for reason, most
// frequent first and alphabetical among ties. n <= 0 returns all.
func (t *Tracker) TopKeywords(reason model.RejectionReason, n int) []KeywordCount {
	freq := t.KeywordFrequency(reason)

	out := make([]KeywordCount, 0, len(freq))
	for kw, count := range freq {
		out = append(out, KeywordCount{Keyword: kw, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ByReason returns the records for reason in recording order.
func (t *Tracker) ByReason(reason model.RejectionReason) []model.RejectionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.RejectionRecord
	for _, r := range t.records {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}
