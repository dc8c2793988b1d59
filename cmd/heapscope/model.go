package main

import (
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/embworks/fixheap/arena"
	"github.com/embworks/fixheap/heap"
)

const tickInterval = 100 * time.Millisecond

// tickMsg drives the workload animation.
type tickMsg time.Time

// Model is the main application model: a heap under randomized load plus
// the presentation state.
type Model struct {
	h        *heap.Heap
	rnd      *rand.Rand
	refs     []heap.Ref
	maxAlloc uint64

	opsPerTick int
	opCount    uint64
	paused     bool
	healthy    bool
	lastErr    error

	width  int
	height int
}

// NewModel initializes the heap and the workload state.
func NewModel(arenaSize, maxAlloc uint64, seed int64, opsPerTick int) (Model, error) {
	h, err := heap.Init(arena.New(int(arenaSize)))
	if err != nil {
		return Model{}, fmt.Errorf("init %d-byte arena: %w", arenaSize, err)
	}
	if limit := h.MaxAllocationSize(); maxAlloc > limit {
		maxAlloc = limit
	}
	return Model{
		h:          h,
		rnd:        rand.New(rand.NewSource(seed)),
		maxAlloc:   maxAlloc,
		opsPerTick: opsPerTick,
		healthy:    true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			return m, nil
		case "s":
			m.step()
			return m, nil
		}

	case tickMsg:
		if !m.paused {
			for i := 0; i < m.opsPerTick && m.healthy; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step performs one random heap operation and refreshes the health flag.
func (m *Model) step() {
	switch action := m.rnd.Intn(10); {
	case action < 5:
		ref, _, err := m.h.Allocate(uint64(m.rnd.Int63n(int64(m.maxAlloc)) + 1))
		if err == nil {
			m.refs = append(m.refs, ref)
		}
	case action < 8 && len(m.refs) > 0:
		n := m.rnd.Intn(len(m.refs))
		if err := m.h.Free(m.refs[n]); err != nil {
			m.fail(err)
			return
		}
		m.refs[n] = m.refs[len(m.refs)-1]
		m.refs = m.refs[:len(m.refs)-1]
	case len(m.refs) > 0:
		n := m.rnd.Intn(len(m.refs))
		ref, _, err := m.h.Reallocate(m.refs[n], uint64(m.rnd.Int63n(int64(m.maxAlloc))+1))
		if err == nil {
			m.refs[n] = ref
		}
	}
	m.opCount++

	if !m.h.DoInvariantsHold() {
		m.fail(fmt.Errorf("invariants violated after op %d", m.opCount))
	}
}

func (m *Model) fail(err error) {
	m.healthy = false
	m.paused = true
	m.lastErr = err
}
