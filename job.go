package sfcb

import "math"

// Mount (MKCB) triggers a rebuild scan of every used-but-not-yet-
// initialised queue: reconstructing NumEntries, IDNumMin/Max,
// StartPageIDMin, and StartPageWrite from raw flash. A queue already
// Initialised is left untouched, which is what makes two back-to-back
// Mount calls with no intervening write idempotent — the second finds
// nothing left to scan.
func (d *Driver) Mount() error {
	if d.busy {
		return ErrBusy
	}

	anyUsed := false
	for i := range d.queues {
		if d.queues[i].Used {
			anyUsed = true
			break
		}
	}
	if !anyUsed {
		return ErrNoQueueRegistered
	}

	d.iterQueue = -1
	if !d.advanceToNextUninitQueue() {
		// Nothing to do: every used queue is already initialised.
		return nil
	}

	for i := range d.queues {
		if q := &d.queues[i]; q.Used && !q.Initialised {
			q.NumEntries = 0
			q.IDNumMin = math.MaxUint32
			q.StartPageIDMin = 0
		}
	}

	d.cmd = cmdMKCB
	d.stage = stageS0
	d.busy = true
	d.err = ErrNone
	d.spiLen = 0
	d.awaitingStatus = false
	d.iterElem = 0
	d.pendingEval = false
	return nil
}

// advanceToNextUninitQueue moves iterQueue forward to the next used && !
// Initialised slot and reports whether one was found.
func (d *Driver) advanceToNextUninitQueue() bool {
	for i := d.iterQueue + 1; i < len(d.queues); i++ {
		if d.queues[i].Used && !d.queues[i].Initialised {
			d.iterQueue = i
			return true
		}
	}
	return false
}

// Append (ADD) stages a new record for queue id. The payload pointer and
// length are captured verbatim: data must not be mutated until Busy()
// reports false again. Initialised is cleared immediately, synchronously
// with acceptance — not when the job later completes — so a crash or
// watchdog reset mid-write always forces a Mount before the next Append
// or Get, per spec §4.5.
func (d *Driver) Append(id int, data []byte) error {
	if d.busy {
		return ErrBusy
	}
	q, err := d.Queue(id)
	if err != nil {
		return err
	}
	if !q.Initialised {
		return ErrNotInitialised
	}
	maxLen := int(q.PagesPerElement)*int(d.desc.PageSizeBytes) - headerSize
	if len(data) > maxLen {
		return ErrTooLarge
	}

	newID := q.IDNumMax + 1
	d.queues[id].IDNumMax = newID
	d.queues[id].Initialised = false

	d.iterQueue = id
	d.dataPtr = data
	d.addHeader = RecordHeader{Magic: q.MagicNum, ID: newID}
	d.iterElem = 0
	d.iterPage = q.StartPageWrite

	d.cmd = cmdAdd
	d.stage = stageS0
	d.busy = true
	d.err = ErrNone
	d.spiLen = 0
	d.awaitingStatus = false
	return nil
}

// Get (GET) stages a read of the oldest record in queue id — the record
// at StartPageIDMin — into buf. At most len(buf) bytes are copied; the
// rest of the record's payload region, if any, is discarded.
func (d *Driver) Get(id int, buf []byte) error {
	if d.busy {
		return ErrBusy
	}
	q, err := d.Queue(id)
	if err != nil {
		return err
	}
	if !q.Initialised {
		return ErrNotInitialised
	}
	if q.NumEntries == 0 {
		return ErrEmpty
	}

	d.iterQueue = id
	d.dataPtr = buf
	d.lastN = 0

	d.cmd = cmdGet
	d.stage = stageS0
	d.busy = true
	d.err = ErrNone
	d.spiLen = 0
	d.awaitingStatus = false
	return nil
}

// ReadRaw (RAW) bypasses all queue semantics and stages a direct read of
// len(buf) bytes starting at the absolute byte address addr.
func (d *Driver) ReadRaw(addr uint32, buf []byte) error {
	if d.busy {
		return ErrBusy
	}

	d.rawAddr = addr
	d.dataPtr = buf
	d.lastN = 0

	d.cmd = cmdRaw
	d.stage = stageS0
	d.busy = true
	d.err = ErrNone
	d.spiLen = 0
	d.awaitingStatus = false
	return nil
}
