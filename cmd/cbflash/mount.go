package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akaeba/sfcb"
)

// newMountCommand rebuilds queue metadata from the configured backend's
// current flash contents and reports the resulting per-queue state.
func newMountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mount",
		Short: "Rebuild queue metadata from flash (MKCB) and report queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flagConfig)
			if err != nil {
				return err
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
			if err := b.persist(); err != nil {
				return fmt.Errorf("persist flash image: %w", err)
			}

			for i, id := range ids {
				q, err := drv.Queue(id)
				if err != nil {
					return err
				}
				logger.Info("queue mounted", "queue", i, "id", id,
					"num_entries", q.NumEntries, "id_num_min", q.IDNumMin, "id_num_max", q.IDNumMax)
			}
			return nil
		},
	}
}
