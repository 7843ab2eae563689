package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akaeba/sfcb"
)

func newRawCommand() *cobra.Command {
	var (
		addr   uint32
		length int
	)
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Read raw bytes directly off flash, bypassing queue semantics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var drv sfcb.Driver
			if err := drv.Init(flagFlashType, nil); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			b, err := openBackend(drv.Descriptor())
			if err != nil {
				return err
			}

			buf := make([]byte, length)
			if err := drv.ReadRaw(addr, buf); err != nil {
				return err
			}
			if err := b.pump(&drv); err != nil {
				return fmt.Errorf("read worker: %w", err)
			}
			if err := drv.Err(); err != sfcb.ErrNone {
				return fmt.Errorf("read failed: %w", err)
			}

			fmt.Println(hex.Dump(buf[:drv.LastN()]))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&addr, "addr", 0, "absolute byte address")
	cmd.Flags().IntVar(&length, "len", 256, "number of bytes to read")
	return cmd
}
