// heapscope is a terminal UI for watching a fixheap instance under load:
// it runs a randomized workload against a fresh arena and renders the
// size-class bins, the non-empty-bin mask, and the diagnostics counters
// live.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	arenaSize := flag.Uint64("arena-size", 1<<20, "arena size in bytes")
	maxAlloc := flag.Uint64("max-alloc", 4096, "largest random allocation amount")
	seed := flag.Int64("seed", 1, "workload random seed")
	opsPerTick := flag.Int("ops-per-tick", 64, "operations performed per animation frame")
	flag.Parse()

	m, err := NewModel(*arenaSize, *maxAlloc, *seed, *opsPerTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
