package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akaeba/sfcb"
)

// newGetCommand reads the oldest still-queued record from a configured
// queue, mounting first for the same reason newAppendCommand does.
func newGetCommand() *cobra.Command {
	var queue int
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read the oldest record from a configured queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flagConfig)
			if err != nil {
				return err
			}
			if queue < 0 || queue >= len(cfg.Queues) {
				return fmt.Errorf("queue %d out of range (config has %d queues)", queue, len(cfg.Queues))
			}

			drv, ids, err := registerQueues(cfg)
			if err != nil {
				return err
			}
			b, err := openBackend(drv.Descriptor())
			if err != nil {
				return err
			}

			if err := drv.Mount(); err != nil {
				return fmt.Errorf("mount: %w", err)
			}
			if err := b.pump(drv); err != nil {
				return fmt.Errorf("mount worker: %w", err)
			}
			if err := drv.Err(); err != sfcb.ErrNone {
				return fmt.Errorf("mount failed: %w", err)
			}

			q, err := drv.Queue(ids[queue])
			if err != nil {
				return err
			}
			buf := make([]byte, int(q.PagesPerElement)*int(drv.Descriptor().PageSizeBytes))
			if err := drv.Get(ids[queue], buf); err != nil {
				return fmt.Errorf("get: %w", err)
			}
			if err := b.pump(drv); err != nil {
				return fmt.Errorf("get worker: %w", err)
			}
			if err := drv.Err(); err != sfcb.ErrNone {
				return fmt.Errorf("get failed: %w", err)
			}

			fmt.Printf("%s\n", buf[:drv.LastN()])
			return nil
		},
	}
	cmd.Flags().IntVar(&queue, "queue", 0, "index into the config's queues list")
	return cmd
}
