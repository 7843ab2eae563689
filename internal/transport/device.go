package transport

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// Device is an FT2232H-backed SPI connection to a raw NOR flash chip,
// adapted from gentam/gice's Device (device.go): that type bundled an
// FPGA reset/done pair alongside the flash chip-select because its flash
// shares a bus with an FPGA bitstream loader. This driver only ever
// targets the flash directly, so the FPGA-specific pins are dropped and
// only the chip-select and SPI connection survive.
type Device struct {
	FTDI *ftdi.FT232H

	CS gpio.PinIO // chip select

	clock physic.Frequency
	Conn  spi.Conn
}

var hostInitialized atomic.Bool

// OpenDevice finds an FT2232H device and opens an MPSSE/SPI connection to
// it. selectCS picks the chip-select line off the opened FT232H (e.g.
// func(ft *ftdi.FT232H) gpio.PinIO { return ft.D4 }, ADBUS4, the line
// gice wires its own flash chip-select to). Clocked the way gice clocks
// its iCE40 flash ([AN_135 3.2.1 Divisors]).
func OpenDevice(selectCS func(*ftdi.FT232H) gpio.PinIO) (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}

	d := &Device{clock: 30 * physic.MegaHertz}
	if err := d.findFT2232H(); err != nil {
		return nil, err
	}
	d.CS = selectCS(d.FTDI)

	if err := d.connectSPI(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) findFT2232H() error {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			d.FTDI = ft
			return nil
		}
	}
	return errors.New("FT2232H device not found")
}

func (d *Device) connectSPI() (err error) {
	if d.FTDI == nil {
		return errors.New("FT2232H device not found")
	}

	port, err := d.FTDI.SPI()
	if err != nil {
		return fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI AN_114|1.2] FTDI's MPSSE engine only supports mode 0 and mode 2.
	d.Conn, err = port.Connect(d.clock, spi.Mode0, 8)
	return err
}
