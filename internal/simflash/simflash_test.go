package simflash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akaeba/sfcb/internal/simflash"
)

func testOpcodes() simflash.Opcodes {
	return simflash.Opcodes{
		ReadData:    0x03,
		ReadStatus:  0x05,
		WriteEnable: 0x06,
		EraseSector: 0xD8,
		PageProgram: 0x02,
		WIPMask:     0x01,
	}
}

func TestNewFlashIsErased(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	for _, b := range f.Bytes() {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestReadStatusIdleByDefault(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	buf := []byte{0x05, 0x00}
	require.NoError(t, f.Transact(buf))
	require.Equal(t, byte(0), buf[1]&0x01)
}

func TestPageProgramRequiresWriteEnable(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	buf := []byte{0x02, 0x00, 0x00, 0x00, 0xAB}
	require.Error(t, f.Transact(buf))
}

func TestPageProgramAndReadBack(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.NoError(t, f.Transact([]byte{0x06}))

	data := []byte{0x01, 0x02, 0x03}
	buf := append([]byte{0x02, 0x00, 0x00, 0x00}, data...)
	require.NoError(t, f.Transact(buf))

	read := []byte{0x03, 0x00, 0x00, 0x00, 0, 0, 0}
	require.NoError(t, f.Transact(read))
	require.Equal(t, data, read[4:])
}

func TestPageProgramOnlyClearsBits(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.NoError(t, f.Transact([]byte{0x06}))
	require.NoError(t, f.Transact([]byte{0x02, 0x00, 0x00, 0x00, 0x0F}))

	// A second program without an intervening erase can only clear more
	// bits, never set one back to 1: AND(0x0F, 0xF0) = 0x00, not 0xFF.
	require.NoError(t, f.Transact([]byte{0x06}))
	require.NoError(t, f.Transact([]byte{0x02, 0x00, 0x00, 0x00, 0xF0}))

	read := []byte{0x03, 0x00, 0x00, 0x00, 0}
	require.NoError(t, f.Transact(read))
	require.Equal(t, byte(0x00), read[4])
}

func TestEraseSectorResetsToErased(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.NoError(t, f.Transact([]byte{0x06}))
	require.NoError(t, f.Transact([]byte{0x02, 0x00, 0x00, 0x00, 0x00}))
	require.NoError(t, f.Transact([]byte{0x06}))
	require.NoError(t, f.Transact([]byte{0xD8, 0x00, 0x00, 0x00}))

	read := []byte{0x03, 0x00, 0x00, 0x00, 0}
	require.NoError(t, f.Transact(read))
	require.Equal(t, byte(0xFF), read[4])
}

func TestEraseSectorRequiresWriteEnable(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.Error(t, f.Transact([]byte{0xD8, 0x00, 0x00, 0x00}))
}

func TestWIPDelayCountsDownPerPoll(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256).WithWIPDelay(2)
	require.NoError(t, f.Transact([]byte{0x06}))
	require.NoError(t, f.Transact([]byte{0x02, 0x00, 0x00, 0x00, 0x00}))

	for i := 0; i < 2; i++ {
		status := []byte{0x05, 0x00}
		require.NoError(t, f.Transact(status))
		require.Equal(t, byte(0x01), status[1]&0x01, "poll %d should still report busy", i)
	}

	status := []byte{0x05, 0x00}
	require.NoError(t, f.Transact(status))
	require.Equal(t, byte(0x00), status[1]&0x01, "flash should be idle after wipDelay polls")
}

func TestUnknownOpcodeErrors(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.Error(t, f.Transact([]byte{0xFE}))
}

func TestEmptyTransactIsNoop(t *testing.T) {
	f := simflash.New(testOpcodes(), 4096, 256)
	require.NoError(t, f.Transact(nil))
}
