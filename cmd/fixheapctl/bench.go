package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/embworks/fixheap/arena"
	"github.com/embworks/fixheap/heap"
)

var (
	benchArenaSize uint64
	benchOps       uint64
	benchMaxAlloc  uint64
	benchSeed      int64
	benchMapped    bool
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().Uint64Var(&benchArenaSize, "arena-size", 1<<20, "Arena size in bytes")
	cmd.Flags().Uint64Var(&benchOps, "ops", 1_000_000, "Number of operations to run")
	cmd.Flags().Uint64Var(&benchMaxAlloc, "max-alloc", 4096, "Largest random allocation amount")
	cmd.Flags().Int64Var(&benchSeed, "seed", 1, "Workload random seed")
	cmd.Flags().BoolVar(&benchMapped, "mmap", false, "Back the arena with an anonymous mapping")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run a randomized allocate/free/reallocate benchmark",
		Long: `The bench command drives a randomized mix of allocations, frees, and
reallocations against a fresh heap and reports throughput together with
the engine's diagnostics record.

Example:
  fixheapctl bench --arena-size 1048576 --ops 5000000
  fixheapctl bench --mmap --max-alloc 512 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

type benchReport struct {
	Ops         uint64
	Elapsed     time.Duration
	OpsPerSec   float64
	Live        int
	Diagnostics heap.Diagnostics
}

func runBench() error {
	buf, release, err := benchArena()
	if err != nil {
		return err
	}
	defer release() //nolint:errcheck // best-effort unmap on exit

	h, err := heap.Init(buf)
	if err != nil {
		return fmt.Errorf("init %d-byte arena: %w", benchArenaSize, err)
	}
	printVerbose("Capacity: %d bytes, max allocation: %d bytes\n",
		h.Capacity(), h.MaxAllocationSize())

	rnd := rand.New(rand.NewSource(benchSeed))
	refs := make([]heap.Ref, 0, 4096)

	start := time.Now()
	for op := uint64(0); op < benchOps; op++ {
		switch {
		case op%2 == 0:
			ref, _, err := h.Allocate(uint64(rnd.Int63n(int64(benchMaxAlloc)) + 1))
			if err == nil {
				refs = append(refs, ref)
			}
		case op%5 == 0 && len(refs) > 0:
			n := rnd.Intn(len(refs))
			ref, _, err := h.Reallocate(refs[n], uint64(rnd.Int63n(int64(benchMaxAlloc))+1))
			if err == nil {
				refs[n] = ref
			}
		case len(refs) > 0:
			n := rnd.Intn(len(refs))
			if err := h.Free(refs[n]); err != nil {
				return fmt.Errorf("op %d: %w", op, err)
			}
			refs[n] = refs[len(refs)-1]
			refs = refs[:len(refs)-1]
		}
	}
	elapsed := time.Since(start)

	report := benchReport{
		Ops:         benchOps,
		Elapsed:     elapsed,
		OpsPerSec:   float64(benchOps) / elapsed.Seconds(),
		Live:        len(refs),
		Diagnostics: h.Diagnostics(),
	}

	if !h.DoInvariantsHold() {
		return fmt.Errorf("invariants violated after benchmark")
	}

	if jsonOut {
		return printJSON(report)
	}
	d := report.Diagnostics
	printInfo("Ran %d ops in %s (%.0f ops/s), %d blocks live\n",
		report.Ops, report.Elapsed.Round(time.Millisecond), report.OpsPerSec, report.Live)
	printInfo("Capacity:       %d\n", d.Capacity)
	printInfo("Allocated:      %d\n", d.Allocated)
	printInfo("Peak allocated: %d\n", d.PeakAllocated)
	printInfo("Peak request:   %d\n", d.PeakRequestSize)
	printInfo("OOM count:      %d\n", d.OOMCount)
	return nil
}

func benchArena() ([]byte, func() error, error) {
	if benchMapped {
		return arena.Map(int(benchArenaSize))
	}
	return arena.New(int(benchArenaSize)), func() error { return nil }, nil
}
