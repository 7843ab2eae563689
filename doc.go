// Package sfcb implements a non-blocking driver for circular buffer queues
// ("CBs") journaled onto an external SPI NOR flash chip.
//
// The driver never touches a bus itself. [Driver.Worker] advances the
// current job by exactly one SPI transaction and returns; the caller reads
// [Driver.SPILen], transacts that many bytes full-duplex into the buffer
// returned by [Driver.SPIBuf], and calls [Driver.Worker] again. See
// internal/transport for a convenience loop built on top of a real
// periph.io/x/conn/v3/spi.Conn, and internal/simflash for an in-memory
// flash used by the test suite and the `cbflash` CLI's simulator mode.
//
// References:
//   - [N25Q32|Table 16: Command Set]
//   - [W25Q128|8.1.2 Instruction Set Table 1]
package sfcb
