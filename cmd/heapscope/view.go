package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/embworks/fixheap/heap"
)

const maxBarWidth = 40

func (m Model) View() string {
	var b strings.Builder

	d := m.h.Diagnostics()
	state := "running"
	if m.paused {
		state = "paused"
	}
	b.WriteString(headerStyle.Render(
		fmt.Sprintf("heapscope — %d ops, %d live blocks, %s", m.opCount, len(m.refs), state)))
	b.WriteString("\n")

	b.WriteString(paneStyle.Render(m.renderBins()))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(renderDiagnostics(d)))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("ERROR: " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("space pause · s step · q quit"))
	return b.String()
}

// renderBins draws one row per size class up to the capacity, empty or
// not: the class's lower size bound, a bar scaled to the fragment count,
// and a marker that is set when the bin holds any fragment.
func (m Model) renderBins() string {
	counts := m.h.BinCounts()

	var maxCount uint64
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	var rows []string
	rows = append(rows, binLabelStyle.Render("bin  class size        free fragments"))
	for i, count := range counts {
		lo := uint64(heap.FragmentSizeMin) << i
		if lo > m.h.Capacity() {
			break
		}
		mark := maskClearStyle.Render("·")
		if count > 0 {
			mark = maskSetStyle.Render("●")
		}
		width := 0
		if maxCount > 0 {
			width = int(count * maxBarWidth / maxCount)
			if count > 0 && width == 0 {
				width = 1
			}
		}
		rows = append(rows, fmt.Sprintf("%s %3d  %-16s %s %d",
			mark, i, humanSize(lo), barStyle.Render(strings.Repeat("█", width)), count))
	}
	return strings.Join(rows, "\n")
}

func renderDiagnostics(d heap.Diagnostics) string {
	gauge := func(v uint64) string {
		width := 0
		if d.Capacity > 0 {
			width = int(v * maxBarWidth / d.Capacity)
		}
		return barStyle.Render(strings.Repeat("▒", width))
	}
	rows := []string{
		fmt.Sprintf("capacity        %12d", d.Capacity),
		fmt.Sprintf("allocated       %12d %s", d.Allocated, gauge(d.Allocated)),
		fmt.Sprintf("peak allocated  %12d %s", d.PeakAllocated, gauge(d.PeakAllocated)),
		fmt.Sprintf("peak request    %12d", d.PeakRequestSize),
		fmt.Sprintf("oom count       %12d", d.OOMCount),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func humanSize(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%d GiB", n>>30)
	case n >= 1<<20:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
