package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/Veraticus/osm-powerplants/internal/rejection"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RunSummary is what a processing run reports when it ends.
type RunSummary struct {
	Rejections   map[model.RejectionReason]int
	RunID        string
	Failed       []string
	Stats        model.Statistics
	Duration     time.Duration
	NetworkCalls int64
	CacheHits    int64
	Regions      int
}

// RenderSummary renders the run summary box.
func RenderSummary(s RunSummary) string {
	rejected := 0
	for _, n := range s.Rejections {
		rejected += n
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Results:\n", ChartIcon)
	fmt.Fprintf(&b, "  • Regions processed: %d\n", s.Regions-len(s.Failed))
	fmt.Fprintf(&b, "  • Units: %d (%.1f%% with coordinates)\n", s.Stats.TotalUnits, s.Stats.CoveragePercentage)
	fmt.Fprintf(&b, "  • Total capacity: %s\n", formatMW(s.Stats.TotalCapacityMW))
	fmt.Fprintf(&b, "  • Rejected: %d\n", rejected)
	fmt.Fprintf(&b, "  • Network calls: %d, cache hits: %d\n", s.NetworkCalls, s.CacheHits)
	fmt.Fprintf(&b, "  • Time taken: %s", s.Duration.Round(time.Second))
	if s.RunID != "" {
		fmt.Fprintf(&b, "\n  • Run ID: %s", s.RunID)
	}
	if len(s.Failed) > 0 {
		b.WriteString("\n\n")
		b.WriteString(FormatError(fmt.Sprintf("Failed regions: %s", strings.Join(s.Failed, ", "))))
	}

	return RenderBox("Processing Complete", b.String())
}

// CapacityTable renders installed capacity per fuel, largest first.
func CapacityTable(stats model.Statistics) string {
	fuels := make([]string, 0, len(stats.CapacityByFuel))
	for fuel := range stats.CapacityByFuel {
		fuels = append(fuels, fuel)
	}
	sort.Slice(fuels, func(i, j int) bool {
		ci, cj := stats.CapacityByFuel[fuels[i]], stats.CapacityByFuel[fuels[j]]
		if ci != cj {
			return ci > cj
		}
		return fuels[i] < fuels[j]
	})

	rows := make([][]string, 0, len(fuels))
	for _, fuel := range fuels {
		rows = append(rows, []string{fuel, formatMW(stats.CapacityByFuel[fuel])})
	}
	return Table([]string{"Fuel", "Capacity"}, rows)
}

// RejectionTable renders rejection counts in reporting order.
func RejectionTable(counts map[model.RejectionReason]int) string {
	var rows [][]string
	total := 0
	for _, reason := range model.AllReasons() {
		n := counts[reason]
		if n == 0 {
			continue
		}
		total += n
		rows = append(rows, []string{reason.Label(), strconv.Itoa(n)})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(total)})
	return Table([]string{"Reason", "Count"}, rows)
}

// KeywordTable renders the most frequent keywords of one rejection reason.
func KeywordTable(reason model.RejectionReason, keywords []rejection.KeywordCount) string {
	rows := make([][]string, 0, len(keywords))
	for _, kc := range keywords {
		rows = append(rows, []string{kc.Keyword, strconv.Itoa(kc.Count)})
	}
	return Table([]string{reason.Label(), "Count"}, rows)
}

// Table renders rows under headers with the shared table style.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.String()
}

func formatMW(mw float64) string {
	if mw >= 1000 {
		return fmt.Sprintf("%.2f GW", mw/1000)
	}
	return fmt.Sprintf("%.1f MW", mw)
}
