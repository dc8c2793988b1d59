package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embworks/fixheap/arena"
	"github.com/embworks/fixheap/heap"
)

var infoArenaSize uint64

func init() {
	cmd := newInfoCmd()
	cmd.Flags().Uint64Var(&infoArenaSize, "arena-size", 64*1024, "Arena size in bytes")
	rootCmd.AddCommand(cmd)
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show engine constants and the layout of an arena",
		Long: `The info command initializes a heap in a fresh arena of the given size
and reports the engine constants, the resulting capacity, and the largest
single allocation that arena can serve.

Example:
  fixheapctl info --arena-size 65536
  fixheapctl info --arena-size 4096 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
}

type engineInfo struct {
	ArenaSize         uint64
	Alignment         uint64
	FragmentSizeMin   uint64
	MinArenaSize      uint64
	InstanceOverhead  uint64
	Capacity          uint64
	MaxAllocationSize uint64
}

func runInfo() error {
	h, err := heap.Init(arena.New(int(infoArenaSize)))
	if err != nil {
		return fmt.Errorf("init %d-byte arena: %w", infoArenaSize, err)
	}

	info := engineInfo{
		ArenaSize:         infoArenaSize,
		Alignment:         heap.Alignment,
		FragmentSizeMin:   heap.FragmentSizeMin,
		MinArenaSize:      heap.MinArenaSize,
		InstanceOverhead:  heap.MinArenaSize - heap.FragmentSizeMin,
		Capacity:          h.Capacity(),
		MaxAllocationSize: h.MaxAllocationSize(),
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("Arena size:          %d bytes\n", info.ArenaSize)
	printInfo("Alignment:           %d bytes\n", info.Alignment)
	printInfo("Minimum fragment:    %d bytes\n", info.FragmentSizeMin)
	printInfo("Minimum arena:       %d bytes\n", info.MinArenaSize)
	printInfo("Instance overhead:   %d bytes\n", info.InstanceOverhead)
	printInfo("Capacity:            %d bytes\n", info.Capacity)
	printInfo("Max allocation:      %d bytes\n", info.MaxAllocationSize)
	return nil
}
