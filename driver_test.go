package sfcb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akaeba/sfcb"
	"github.com/akaeba/sfcb/internal/simflash"
)

// winbondIdx is the Descriptors index used throughout these tests:
// page_size=256, pages_per_sector=16, sector_size=4096, matching the
// geometry spec.md §8's worked scenarios assume.
const winbondIdx = 1

func newHarness(t *testing.T, numQueues int) (*sfcb.Driver, *simflash.Flash) {
	t.Helper()
	desc := sfcb.Descriptors[winbondIdx]

	flash := simflash.New(simflash.Opcodes{
		ReadData:    desc.OpReadData,
		ReadStatus:  desc.OpReadStatus,
		WriteEnable: desc.OpWriteEnable,
		EraseSector: desc.OpEraseSector,
		PageProgram: desc.OpPageProgram,
		WIPMask:     desc.WIPMask,
	}, int(desc.TotalSizeBytes), int(desc.SectorSizeBytes))

	var drv sfcb.Driver
	require.NoError(t, drv.Init(winbondIdx, make([]sfcb.QueueDescriptor, numQueues)))
	return &drv, flash
}

// pump drives drv to completion of its current job against flash,
// bounding the loop so a stuck FSM fails the test instead of hanging it.
func pump(t *testing.T, drv *sfcb.Driver, flash *simflash.Flash) {
	t.Helper()
	const maxSteps = 1 << 20
	for i := 0; drv.Busy(); i++ {
		require.Less(t, i, maxSteps, "worker did not terminate")
		if n := drv.SPILen(); n > 0 {
			require.NoError(t, flash.Transact(drv.SPIBuf()[:n]))
		}
		drv.Worker()
	}
}

func TestInitRejectsBadFlashType(t *testing.T) {
	var drv sfcb.Driver
	err := drv.Init(len(sfcb.Descriptors), nil)
	require.ErrorIs(t, err, sfcb.ErrBadFlashType)
}

// Scenario 1: register two queues and check the resulting geometry.
func TestRegisterQueueGeometry(t *testing.T) {
	drv, _ := newHarness(t, 2)

	id0, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)
	q0, err := drv.Queue(id0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), q0.StartSector)
	require.Equal(t, uint32(1), q0.StopSector)
	require.EqualValues(t, 1, q0.PagesPerElement)

	id1, err := drv.RegisterQueue(0xB, 250, 8)
	require.NoError(t, err)
	q1, err := drv.Queue(id1)
	require.NoError(t, err)
	require.Equal(t, uint32(2), q1.StartSector)
	require.Equal(t, uint32(3), q1.StopSector)
	// 250 + 2*sizeof(u32) = 258 bytes needs 2 pages of 256 bytes; see
	// DESIGN.md for why this repo computes 2 here rather than the 1
	// spec.md's own worked example states for this queue.
	require.EqualValues(t, 2, q1.PagesPerElement)
}

func TestRegisterQueueNonOverlap(t *testing.T) {
	drv, _ := newHarness(t, 3)
	id0, err := drv.RegisterQueue(0xA, 50, 4)
	require.NoError(t, err)
	id1, err := drv.RegisterQueue(0xB, 50, 4)
	require.NoError(t, err)
	id2, err := drv.RegisterQueue(0xC, 50, 4)
	require.NoError(t, err)

	q0, _ := drv.Queue(id0)
	q1, _ := drv.Queue(id1)
	q2, _ := drv.Queue(id2)
	require.Less(t, q0.StopSector, q1.StartSector)
	require.Less(t, q1.StopSector, q2.StartSector)
}

func TestRegisterQueueNoSlot(t *testing.T) {
	drv, _ := newHarness(t, 1)
	_, err := drv.RegisterQueue(0xA, 10, 2)
	require.NoError(t, err)
	_, err = drv.RegisterQueue(0xB, 10, 2)
	require.ErrorIs(t, err, sfcb.ErrNoSlot)
}

// Scenario 2: mounting empty flash yields empty, initialised queues with
// the next free page at the start of the queue's sector range.
func TestMountEmptyFlash(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	q, err := drv.Queue(id)
	require.NoError(t, err)
	require.True(t, q.Initialised)
	require.EqualValues(t, 0, q.NumEntries)
	require.Equal(t, q.StartSector*uint32(drv.Descriptor().PagesPerSector), q.StartPageWrite)
}

func TestMountIsIdempotent(t *testing.T) {
	drv, flash := newHarness(t, 1)
	_, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)
	q1, err := drv.Queue(0)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)
	q2, err := drv.Queue(0)
	require.NoError(t, err)

	require.Equal(t, q1, q2)
}

// Scenario 3: append, mount, get round-trips the payload.
func TestAppendMountGetRoundTrip(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)

	payload := []byte{0x11, 0x22, 0x33}
	require.NoError(t, drv.Append(id, payload))
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	q, err := drv.Queue(id)
	require.NoError(t, err)
	require.EqualValues(t, 1, q.IDNumMax)
	require.EqualValues(t, 1, q.NumEntries)

	out := make([]byte, len(payload))
	require.NoError(t, drv.Get(id, out))
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())
	require.Equal(t, payload, out)
	require.Equal(t, len(payload), drv.LastN())
}

func TestAppendRequiresMount(t *testing.T) {
	drv, _ := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)
	err = drv.Append(id, []byte{1})
	require.ErrorIs(t, err, sfcb.ErrNotInitialised)
}

func TestAppendTooLarge(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)
	require.NoError(t, drv.Mount())
	pump(t, drv, flash)

	err = drv.Append(id, make([]byte, 300))
	require.ErrorIs(t, err, sfcb.ErrTooLarge)
}

func TestAppendClearsInitialisedImmediately(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)
	require.NoError(t, drv.Mount())
	pump(t, drv, flash)

	require.NoError(t, drv.Append(id, []byte{1, 2, 3}))
	q, err := drv.Queue(id)
	require.NoError(t, err)
	require.False(t, q.Initialised, "Initialised must drop synchronously at Append acceptance")

	pump(t, drv, flash)
	err = drv.Append(id, []byte{4})
	require.ErrorIs(t, err, sfcb.ErrNotInitialised)
}

// Scenario 4: filling a queue past capacity forces a sector erase of the
// oldest record(s) on a later mount. elemSize=4000 makes pagesPerElement
// exactly one sector (16 pages of 256 bytes), so each eviction destroys
// exactly one record and the resulting ids are easy to predict: after
// NumEntriesMax+1 append/mount rounds on a 4-slot queue, the two oldest
// records (ids 1 and 2) have been erased and only ids 3-5 remain.
func TestWrapAroundErasesOldestSector(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 4000, 4)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, drv, flash)
	q, _ := drv.Queue(id)
	require.EqualValues(t, 4, q.NumEntriesMax)

	for i := 0; i < int(q.NumEntriesMax)+1; i++ {
		require.NoError(t, drv.Append(id, []byte{byte(i)}))
		pump(t, drv, flash)
		require.Equal(t, sfcb.ErrNone, drv.Err())

		require.NoError(t, drv.Mount())
		pump(t, drv, flash)
		require.Equal(t, sfcb.ErrNone, drv.Err())
	}

	q, err = drv.Queue(id)
	require.NoError(t, err)
	require.True(t, q.Initialised)
	require.EqualValues(t, 5, q.IDNumMax)
	require.EqualValues(t, 3, q.IDNumMin)
	require.EqualValues(t, 3, q.NumEntries)
}

// Scenario 5: raw read of freshly erased flash returns all 0xFF.
func TestReadRawOnErasedFlash(t *testing.T) {
	drv, flash := newHarness(t, 0)
	buf := make([]byte, 8)
	require.NoError(t, drv.ReadRaw(0, buf))
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())
	for _, b := range buf {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestReadRawTooLarge(t *testing.T) {
	drv, flash := newHarness(t, 0)
	buf := make([]byte, sfcb.SPIBufSize)
	require.NoError(t, drv.ReadRaw(0, buf))
	pump(t, drv, flash)
	require.Equal(t, sfcb.ErrSPIBufSize, drv.Err())
}

// Scenario 6: every job API call except Busy/SPILen is rejected while busy.
func TestBusyExclusion(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	require.True(t, drv.Busy())

	require.ErrorIs(t, drv.Mount(), sfcb.ErrBusy)
	require.ErrorIs(t, drv.Append(id, []byte{1}), sfcb.ErrBusy)
	require.ErrorIs(t, drv.Get(id, make([]byte, 1)), sfcb.ErrBusy)
	require.ErrorIs(t, drv.ReadRaw(0, make([]byte, 1)), sfcb.ErrBusy)
	_, err = drv.RegisterQueue(0xB, 10, 2)
	require.ErrorIs(t, err, sfcb.ErrBusy)

	pump(t, drv, flash)
	require.False(t, drv.Busy())
}

func TestGetEmptyQueue(t *testing.T) {
	drv, flash := newHarness(t, 1)
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)
	require.NoError(t, drv.Mount())
	pump(t, drv, flash)

	err = drv.Get(id, make([]byte, 4))
	require.ErrorIs(t, err, sfcb.ErrEmpty)
}

// TestAppendWithWIPDelay exercises the status-polling path explicitly:
// without it, a driver that misreads a stale non-status response as an
// idle status would advance stages before the flash was actually ready.
func TestAppendWithWIPDelay(t *testing.T) {
	desc := sfcb.Descriptors[winbondIdx]
	flash := simflash.New(simflash.Opcodes{
		ReadData:    desc.OpReadData,
		ReadStatus:  desc.OpReadStatus,
		WriteEnable: desc.OpWriteEnable,
		EraseSector: desc.OpEraseSector,
		PageProgram: desc.OpPageProgram,
		WIPMask:     desc.WIPMask,
	}, int(desc.TotalSizeBytes), int(desc.SectorSizeBytes)).WithWIPDelay(3)

	var drv sfcb.Driver
	require.NoError(t, drv.Init(winbondIdx, make([]sfcb.QueueDescriptor, 1)))
	id, err := drv.RegisterQueue(0xA, 100, 32)
	require.NoError(t, err)

	require.NoError(t, drv.Mount())
	pump(t, &drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	payload := []byte{0xAB, 0xCD}
	require.NoError(t, drv.Append(id, payload))
	pump(t, &drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	require.NoError(t, drv.Mount())
	pump(t, &drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())

	out := make([]byte, len(payload))
	require.NoError(t, drv.Get(id, out))
	pump(t, &drv, flash)
	require.Equal(t, sfcb.ErrNone, drv.Err())
	require.Equal(t, payload, out)
}

func TestMountNoQueueRegistered(t *testing.T) {
	drv, _ := newHarness(t, 2)
	err := drv.Mount()
	require.ErrorIs(t, err, sfcb.ErrNoQueueRegistered)
}
