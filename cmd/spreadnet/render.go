package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"spreadnet/internal/engine"
	"spreadnet/internal/store"
	"spreadnet/internal/trace"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	firedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	quietStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(res *engine.Result) string {
	line := fmt.Sprintf("%s %s  %d tokens  %d activations (%d fired)  %d links  %d steps  %v",
		titleStyle.Render(res.Document),
		labelStyle.Render(res.ThoughtID),
		len(res.Tokens), res.Activations, res.Fired, res.Links, res.Steps, res.Duration.Round(time.Microsecond))
	if res.StepErr != nil {
		line += "\n" + errorStyle.Render("step errors: "+res.StepErr.Error())
	}
	return line
}

func renderResult(res *engine.Result) string {
	var b strings.Builder
	b.WriteString(renderSummary(res))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Activations"))
	b.WriteString("\n")
	for _, a := range res.Thought.Activations() {
		line := fmt.Sprintf("%-8s %-28s net=%.3f value=%.3f", a.ElementID(), a.Neuron().Label(), a.Net(), a.Value())
		if a.IsFired() {
			b.WriteString(firedStyle.Render(line + " fired"))
		} else {
			b.WriteString(quietStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Links"))
	b.WriteString("\n")
	for _, l := range res.Thought.Links() {
		fmt.Fprintf(&b, "%s -> %s  %s w=%.2f\n",
			l.Input().ElementID(), l.Output().ElementID(), l.Synapse().Kind(), l.Weight())
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderBatch(batch *engine.Batch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %d documents in %v  rss %s\n",
		titleStyle.Render("batch"), labelStyle.Render(batch.ID),
		len(batch.Results), batch.Duration.Round(time.Microsecond), humanize.Bytes(batch.RSSBytes))
	for _, res := range batch.Results {
		b.WriteString(renderSummary(res))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTrace(rec *trace.Recorder) (string, error) {
	var b strings.Builder
	for _, pred := range []string{"linked", "reaches", "reprocessed"} {
		facts, err := rec.Facts(pred)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(pred), labelStyle.Render(fmt.Sprintf("(%d)", len(facts))))
		for _, f := range facts {
			b.WriteString("  " + f.String() + "\n")
		}
	}
	return b.String(), nil
}

func renderIndex(idx *store.Index) string {
	var b strings.Builder
	labels := make([]string, 0, len(idx.Labels))
	for l := range idx.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("labels"), labelStyle.Render(fmt.Sprintf("(%d)", len(labels))))
	for _, l := range labels {
		fmt.Fprintf(&b, "  %6d  %s\n", idx.Labels[l], l)
	}

	ids := make([]int64, 0, len(idx.Entries))
	for id := range idx.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("entries"), labelStyle.Render(fmt.Sprintf("(%d)", len(ids))))
	for _, id := range ids {
		e := idx.Entries[id]
		fmt.Fprintf(&b, "  %6d  offset=%d length=%d\n", e.ID, e.Offset, e.Length)
	}
	return b.String()
}
