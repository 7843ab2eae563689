package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akaeba/sfcb"
)

// newAppendCommand writes one record to a configured queue. It mounts
// first, implicitly: Append requires the target queue's metadata to have
// been rebuilt since the last boot of this process, and since every
// cbflash invocation starts a fresh, unmounted Driver, there is no useful
// append without one.
func newAppendCommand() *cobra.Command {
	var (
		queue int
		data  string
	)
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append a record to a configured queue",
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

			if err := drv.Append(ids[queue], []byte(data)); err != nil {
				return fmt.Errorf("append: %w", err)
			}
			if err := b.pump(drv); err != nil {
				return fmt.Errorf("append worker: %w", err)
			}
			if err := drv.Err(); err != sfcb.ErrNone {
				return fmt.Errorf("append failed: %w", err)
			}
			if err := b.persist(); err != nil {
				return fmt.Errorf("persist flash image: %w", err)
			}

			logger.Info("appended", "queue", queue, "bytes", len(data))
			return nil
		},
	}
	cmd.Flags().IntVar(&queue, "queue", 0, "index into the config's queues list")
	cmd.Flags().StringVar(&data, "data", "", "payload to append")
	return cmd
}
