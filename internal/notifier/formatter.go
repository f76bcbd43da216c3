package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"InvestDash/internal/model"
)

// FormatBreadth formats the current breadth state.
func FormatBreadth(b model.BreadthState) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🌡 <b>Market breadth</b> | %s\n\n", riskLabel(b.RiskOn)))
	if b.Fraction == nil {
		sb.WriteString(fmt.Sprintf("Not enough data (%d symbols with a defined %s)\n", b.Total, b.Indicator))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("%d of %d symbols %s (%.0f%%)\n", b.Above, b.Total, b.Indicator, *b.Fraction*100))
	sb.WriteString(fmt.Sprintf("On ≥ %.0f%% | Off ≤ %.0f%%\n", b.ThresholdOn*100, b.ThresholdOff*100))
	return sb.String()
}

// FormatBreadthFlip formats an alert for a risk_on change.
func FormatBreadthFlip(prev *bool, cur model.BreadthState) string {
	return fmt.Sprintf("🔔 <b>Breadth flip</b>: %s → %s\n\n%s", riskLabel(prev), riskLabel(cur.RiskOn), FormatBreadth(cur))
}

// FormatReentries lists rows that just produced a re-entry signal.
func FormatReentries(rows []model.SignalRow) string {
	var sb strings.Builder
	sb.WriteString("🔁 <b>New re-entry signals</b>\n\n")
	for _, r := range rows {
		sb.WriteString("• " + html.EscapeString(r.Symbol))
		if r.Close != nil {
			sb.WriteString(fmt.Sprintf(" @ %.2f", *r.Close))
		}
		if r.Bucket != nil {
			sb.WriteString(" (" + html.EscapeString(*r.Bucket) + ")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatBuckets lists every bucket with its members.
func FormatBuckets(buckets map[string][]string, unassigned []string) string {
	var sb strings.Builder
	sb.WriteString("🗂 <b>Buckets</b>\n\n")
	if len(buckets) == 0 && len(unassigned) == 0 {
		sb.WriteString("No buckets or tickers yet\n")
		return sb.String()
	}
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("<b>%s</b>: %s\n", html.EscapeString(name), joinOrDash(buckets[name])))
	}
	if len(unassigned) > 0 {
		sb.WriteString(fmt.Sprintf("<i>unassigned</i>: %s\n", joinOrDash(unassigned)))
	}
	return sb.String()
}

// FormatSignals summarizes a snapshot: entries, re-entries and data errors.
func FormatSignals(snap *model.SignalSnapshot) string {
	var entries, reentries, failed []string
	for _, r := range snap.Signals {
		if r.EntryOK {
			entries = append(entries, r.Symbol)
		}
		if r.Reentry != nil && *r.Reentry {
			reentries = append(reentries, r.Symbol)
		}
		if r.DataError != nil {
			failed = append(failed, r.Symbol)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>Signals</b> | %s\n\n", snap.AsOf.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("Entry OK: %s\n", joinOrDash(entries)))
	sb.WriteString(fmt.Sprintf("Re-entry: %s\n", joinOrDash(reentries)))
	if len(failed) > 0 {
		sb.WriteString(fmt.Sprintf("No data: %s\n", joinOrDash(failed)))
	}
	sb.WriteString("\n" + FormatBreadth(snap.Breadth))
	return sb.String()
}

func riskLabel(v *bool) string {
	switch {
	case v == nil:
		return "unknown"
	case *v:
		return "RISK-ON"
	default:
		return "RISK-OFF"
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	escaped := make([]string, len(items))
	for i, s := range items {
		escaped[i] = html.EscapeString(s)
	}
	return strings.Join(escaped, ", ")
}
