package sfcb

// SPIBufSize is the capacity of the driver's shared bidirectional SPI
// packet buffer. A read_raw or get whose request would not fit terminates
// the job with ErrSPIBufSize instead of growing the buffer — flash
// descriptors with larger pages need a correspondingly larger queue
// element budget to stay under it, which RegisterQueue does not enforce
// (it is only checked once a job actually builds a packet, per spec §4.7).
const SPIBufSize = 512

type jobCmd int

const (
	cmdIdle jobCmd = iota
	cmdMKCB
	cmdAdd
	cmdGet
	cmdRaw
)

type stage int

const (
	stageS0 stage = iota
	stageS1
	stageS2
	stageS3
)

// Driver is the non-reentrant state machine described by this package.
// There is no hidden global state: every field that used to live in a
// process-wide singleton handle is a field of this struct, and the queue
// table is caller-owned storage passed to Init.
type Driver struct {
	desc      Descriptor
	flashType int
	queues    []QueueDescriptor

	cmd   jobCmd
	stage stage
	busy  bool
	err   ErrorKind

	spiBuf [SPIBufSize]byte
	spiLen uint16

	iterQueue int
	iterElem  uint16
	iterPage  uint32

	// pendingEval is true when the response now sitting in spiBuf is a
	// page read awaiting MKCB classification, as opposed to a freshly
	// entered stage with nothing yet to evaluate.
	pendingEval bool

	// awaitingStatus is true when the transaction about to be (or just)
	// transacted is a read-status poll issued by waitIdle, so its
	// response in spiBuf is safe to interpret as a status byte. Without
	// this, re-entering stage S0 after a write-enable/program/erase
	// would misread that operation's echoed request bytes as a status
	// register and could call flash idle before it actually is.
	awaitingStatus bool

	// dataPtr is the caller's application buffer for the active job:
	// Append reads from it, Get/ReadRaw write into it.
	dataPtr []byte
	lastN   int

	// addHeader is the header staged for the record an in-flight Append
	// is writing, computed once at job acceptance.
	addHeader RecordHeader

	rawAddr uint32
}

// Init selects the flash part by index into Descriptors and binds the
// caller-owned queue table. queueTable's length is num_queues; Init
// itself performs no flash I/O.
func (d *Driver) Init(flashTypeIdx int, queueTable []QueueDescriptor) error {
	if d.busy {
		return ErrBusy
	}
	if flashTypeIdx < 0 || flashTypeIdx >= len(Descriptors) {
		return ErrBadFlashType
	}
	d.desc = Descriptors[flashTypeIdx]
	d.flashType = flashTypeIdx
	d.queues = queueTable
	d.cmd = cmdIdle
	d.stage = stageS0
	d.busy = false
	d.err = ErrNone
	d.spiLen = 0
	d.awaitingStatus = false
	return nil
}

// Descriptor returns the flash geometry this driver was initialised with.
func (d *Driver) Descriptor() Descriptor { return d.desc }

// Busy reports whether a job is currently in flight.
func (d *Driver) Busy() bool { return d.busy }

// SPILen returns the number of bytes the host must transact next. Zero
// means there is nothing pending (the driver is idle, or just finished a
// job without needing CS activity e.g. between stage transitions).
func (d *Driver) SPILen() uint16 { return d.spiLen }

// SPIBuf exposes the shared bidirectional packet buffer. The host must
// transact exactly SPILen() bytes of it, full duplex, in place, before
// calling Worker again.
func (d *Driver) SPIBuf() []byte { return d.spiBuf[:] }

// Err returns the in-job error recorded by the most recently terminated
// job. It is only meaningful once Busy() is false.
func (d *Driver) Err() ErrorKind { return d.err }

// LastN returns the number of bytes copied into the caller's buffer by
// the most recently completed Get or ReadRaw job.
func (d *Driver) LastN() int { return d.lastN }

// Queue returns a copy of the queue descriptor for id, for inspection by
// the host between jobs.
func (d *Driver) Queue(id int) (QueueDescriptor, error) {
	if id < 0 || id >= len(d.queues) || !d.queues[id].Used {
		return QueueDescriptor{}, ErrInvalidQueue
	}
	return d.queues[id], nil
}

func (d *Driver) finishJob() {
	d.spiLen = 0
	d.cmd = cmdIdle
	d.stage = stageS0
	d.busy = false
}

func (d *Driver) failJob(kind ErrorKind) {
	d.err = kind
	d.finishJob()
}

func (d *Driver) emitReadStatus() {
	d.spiBuf[0] = d.desc.OpReadStatus
	d.spiBuf[1] = 0
	d.spiLen = 2
}

func (d *Driver) emitWriteEnable() {
	d.spiBuf[0] = d.desc.OpWriteEnable
	d.spiLen = 1
}

func (d *Driver) emitReadData(page uint32, n int) {
	addr := pageToByteAddr(page, d.desc.PageSizeBytes)
	d.spiBuf[0] = d.desc.OpReadData
	d.spiBuf[1] = byte(addr >> 16)
	d.spiBuf[2] = byte(addr >> 8)
	d.spiBuf[3] = byte(addr)
	for i := 0; i < n; i++ {
		d.spiBuf[4+i] = 0
	}
	d.spiLen = uint16(4 + n)
}

func (d *Driver) emitEraseSector(page uint32) {
	addr := pageToByteAddr(page, d.desc.PageSizeBytes)
	d.spiBuf[0] = d.desc.OpEraseSector
	d.spiBuf[1] = byte(addr >> 16)
	d.spiBuf[2] = byte(addr >> 8)
	d.spiBuf[3] = byte(addr)
	d.spiLen = 4
}

// waitIdle implements the §4.3 shared S0 contract: while no status-read
// response is pending, or the last one observed still has WIP set,
// (re-)emit a status read and report not-ready. Once a status response
// with WIP clear is in the buffer, consume it and report ready.
func (d *Driver) waitIdle() bool {
	if d.awaitingStatus {
		d.awaitingStatus = false
		if d.spiBuf[1]&d.desc.WIPMask == 0 {
			return true
		}
	}
	d.emitReadStatus()
	d.awaitingStatus = true
	return false
}
