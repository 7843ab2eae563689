package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akaeba/sfcb"
)

// newRegisterCommand reports the geometry register_queue would assign
// without touching flash: registration is pure in-memory arithmetic (see
// sfcb.Driver.RegisterQueue), so this is a planning/diagnostic command,
// not something that needs to persist anything between invocations.
func newRegisterCommand() *cobra.Command {
	var (
		magic    uint32
		elemSize int
		numElems int
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Compute the sector geometry register_queue would assign, without touching flash",
		RunE: func(cmd *cobra.Command, args []string) error {
			var drv sfcb.Driver
			if err := drv.Init(flagFlashType, make([]sfcb.QueueDescriptor, 1)); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			id, err := drv.RegisterQueue(magic, elemSize, numElems)
			if err != nil {
				return err
			}
			q, err := drv.Queue(id)
			if err != nil {
				return err
			}
			fmt.Printf("id=%d start_sector=%d stop_sector=%d pages_per_element=%d num_entries_max=%d\n",
				id, q.StartSector, q.StopSector, q.PagesPerElement, q.NumEntriesMax)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&magic, "magic", 0, "queue magic number")
	cmd.Flags().IntVar(&elemSize, "elem-size", 0, "maximum payload bytes per record")
	cmd.Flags().IntVar(&numElems, "num-elems", 0, "minimum number of records the queue must hold")
	return cmd
}
