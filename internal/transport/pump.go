// Package transport bridges sfcb.Driver's non-blocking spi_buf/spi_len
// contract to a real bus. It never appears on the hot path of the driver
// itself — components in the root package know nothing about
// periph.io/x/conn — it exists only for hosts happy to block until a job
// completes.
//
// Grounded on gentam/gice's Flash.tx (flash.go): CS asserted low, one
// full-duplex conn.Tx, CS deasserted high on every exit path including
// error, via a deferred restore.
package transport

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/akaeba/sfcb"
)

// Conn is the subset of spi.Conn this package needs, narrowed for
// testability without pulling in a real bus in unit tests.
type Conn interface {
	Tx(w, r []byte) error
}

// tx wraps one full-duplex transaction with CS assertion, mirroring
// Flash.tx's defer-based CS-high-on-exit pattern so a transfer error never
// leaves the chip select asserted.
func tx(conn Conn, cs gpio.PinIO, buf []byte) (err error) {
	if err = cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return conn.Tx(buf, buf)
}

// Pump drives drv to completion of its current job, transacting on conn/cs
// between Worker calls until Busy() reports false or ctx is done. It is a
// convenience wrapper only: the core §5 contract (no blocking, no hidden
// scheduler) lives entirely in Worker/SPIBuf/SPILen and is unaffected by
// whether a host chooses to call Pump or drive those three itself.
func Pump(ctx context.Context, drv *sfcb.Driver, conn spi.Conn, cs gpio.PinIO) error {
	for drv.Busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if n := drv.SPILen(); n > 0 {
			if err := tx(conn, cs, drv.SPIBuf()[:n]); err != nil {
				return fmt.Errorf("sfcb transport: spi transaction failed: %w", err)
			}
		}
		drv.Worker()
	}
	return nil
}
