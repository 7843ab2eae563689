package main

import (
	"context"
	"fmt"
	"os"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3/ftdi"

	"github.com/akaeba/sfcb"
	"github.com/akaeba/sfcb/internal/simflash"
	"github.com/akaeba/sfcb/internal/transport"
)

// backend abstracts over the two places a Driver's pending SPI packet can
// be transacted: an in-memory simulator persisted to a file between
// separate cbflash invocations (the default, since each subcommand is its
// own process and register/mount/append/get only make sense together if
// the flash image they see survives across them), or a real
// FT2232H-attached chip via internal/transport.
type backend struct {
	sim     *simflash.Flash
	simPath string
	dev     *transport.Device
}

func openBackend(desc sfcb.Descriptor) (*backend, error) {
	if flagDevice {
		dev, err := transport.OpenDevice(func(ft *ftdi.FT232H) gpio.PinIO { return ft.D4 })
		if err != nil {
			return nil, fmt.Errorf("open device: %w", err)
		}
		return &backend{dev: dev}, nil
	}

	op := simflash.Opcodes{
		ReadData:    desc.OpReadData,
		ReadStatus:  desc.OpReadStatus,
		WriteEnable: desc.OpWriteEnable,
		EraseSector: desc.OpEraseSector,
		PageProgram: desc.OpPageProgram,
		WIPMask:     desc.WIPMask,
	}

	image, err := os.ReadFile(flagSimFile)
	switch {
	case err == nil:
		return &backend{sim: simflash.NewFromImage(op, int(desc.SectorSizeBytes), image), simPath: flagSimFile}, nil
	case os.IsNotExist(err):
		return &backend{sim: simflash.New(op, int(desc.TotalSizeBytes), int(desc.SectorSizeBytes)), simPath: flagSimFile}, nil
	default:
		return nil, fmt.Errorf("read sim image %s: %w", flagSimFile, err)
	}
}

// pump drives drv to completion of its current job against whichever
// backend is active.
func (b *backend) pump(drv *sfcb.Driver) error {
	if b.dev != nil {
		return transport.Pump(context.Background(), drv, b.dev.Conn, b.dev.CS)
	}
	for drv.Busy() {
		if n := drv.SPILen(); n > 0 {
			if err := b.sim.Transact(drv.SPIBuf()[:n]); err != nil {
				return err
			}
		}
		drv.Worker()
	}
	return nil
}

// persist writes the simulator's image back to flagSimFile so the next
// cbflash invocation sees the same flash contents. A no-op against real
// hardware, which is already persistent.
func (b *backend) persist() error {
	if b.sim == nil {
		return nil
	}
	return os.WriteFile(b.simPath, b.sim.Bytes(), 0o600)
}

// registerQueues builds a Driver sized for cfg's queue layout and
// registers every configured queue against it, in config order — the
// slot order RegisterQueue assigns ids in, and the order that must match
// across separate cbflash invocations for mount to find the same records.
func registerQueues(cfg Config) (*sfcb.Driver, []int, error) {
	var drv sfcb.Driver
	if err := drv.Init(cfg.FlashType, make([]sfcb.QueueDescriptor, len(cfg.Queues))); err != nil {
		return nil, nil, fmt.Errorf("init: %w", err)
	}
	ids := make([]int, len(cfg.Queues))
	for i, q := range cfg.Queues {
		id, err := drv.RegisterQueue(q.Magic, q.ElemSize, q.NumElems)
		if err != nil {
			return nil, nil, fmt.Errorf("register queue %d: %w", i, err)
		}
		ids[i] = id
	}
	return &drv, ids, nil
}
