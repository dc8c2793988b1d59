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
	soakArenaSize   uint64
	soakOps         uint64
	soakVerifyEvery uint64
	soakSeed        int64
)

func init() {
	cmd := newSoakCmd()
	cmd.Flags().Uint64Var(&soakArenaSize, "arena-size", 256*1024, "Arena size in bytes")
	cmd.Flags().Uint64Var(&soakOps, "ops", 200_000, "Number of operations to run")
	cmd.Flags().
		Uint64Var(&soakVerifyEvery, "verify-every", 512, "Full structural verification interval")
	cmd.Flags().Int64Var(&soakSeed, "seed", time.Now().UnixNano(), "Workload random seed")
	rootCmd.AddCommand(cmd)
}

func newSoakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "soak",
		Short: "Run a randomized workload under full structural verification",
		Long: `The soak command is the self-test harness: it runs a randomized
workload, re-checks the constant-time invariants after every operation,
and performs a full structural walk of the heap at a configurable
interval. It exits non-zero on the first violation.

Example:
  fixheapctl soak --ops 1000000 --verify-every 1000
  fixheapctl soak --seed 42 --arena-size 8192`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSoak()
		},
	}
}

func runSoak() error {
	h, err := heap.Init(arena.New(int(soakArenaSize)))
	if err != nil {
		return fmt.Errorf("init %d-byte arena: %w", soakArenaSize, err)
	}
	printVerbose("Seed: %d\n", soakSeed)

	rnd := rand.New(rand.NewSource(soakSeed))
	maxAlloc := h.MaxAllocationSize() / 8
	if maxAlloc == 0 {
		maxAlloc = 1
	}
	var refs []heap.Ref

	for op := uint64(0); op < soakOps; op++ {
		switch action := rnd.Intn(10); {
		case action < 5:
			ref, _, err := h.Allocate(uint64(rnd.Int63n(int64(maxAlloc)) + 1))
			if err == nil {
				refs = append(refs, ref)
			}
		case action < 8 && len(refs) > 0:
			n := rnd.Intn(len(refs))
			if err := h.Free(refs[n]); err != nil {
				return fmt.Errorf("op %d: free: %w", op, err)
			}
			refs[n] = refs[len(refs)-1]
			refs = refs[:len(refs)-1]
		case len(refs) > 0:
			n := rnd.Intn(len(refs))
			ref, _, err := h.Reallocate(refs[n], uint64(rnd.Int63n(int64(maxAlloc))+1))
			if err == nil {
				refs[n] = ref
			}
		}

		if !h.DoInvariantsHold() {
			return fmt.Errorf("op %d: invariants violated (seed %d)", op, soakSeed)
		}
		if op%soakVerifyEvery == 0 {
			if err := h.Verify(); err != nil {
				return fmt.Errorf("op %d: structural verification: %w (seed %d)", op, err, soakSeed)
			}
		}
	}

	// Drain and confirm the heap returns to a pristine state.
	for _, ref := range refs {
		if err := h.Free(ref); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}
	if err := h.Verify(); err != nil {
		return fmt.Errorf("after drain: %w", err)
	}
	if d := h.Diagnostics(); d.Allocated != 0 {
		return fmt.Errorf("after drain: %d bytes still accounted", d.Allocated)
	}

	printInfo("Soak passed: %d ops, seed %d\n", soakOps, soakSeed)
	if jsonOut {
		return printJSON(h.Diagnostics())
	}
	return nil
}
