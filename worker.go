package sfcb

import "math"

// Worker advances the current job by exactly one pending SPI transaction:
// it either fills SPIBuf with a new outgoing packet and sets SPILen, or it
// finalises the job (SPILen drops to zero, Busy() becomes false). The host
// owns the bus: before calling Worker again it must transact exactly
// SPILen() bytes full-duplex into SPIBuf(), overwriting it with the
// response.
func (d *Driver) Worker() {
	switch d.cmd {
	case cmdIdle:
		return
	case cmdMKCB:
		d.stepMKCB()
	case cmdAdd:
		d.stepAdd()
	case cmdGet:
		d.stepGet()
	case cmdRaw:
		d.stepRaw()
	}
}

// stepMKCB drives the rebuild scan (§4.4). It loops over internal stage
// transitions — which never themselves emit a packet — until it either
// queues exactly one SPI transfer and returns, or the whole job
// terminates.
func (d *Driver) stepMKCB() {
	for {
		switch d.stage {
		case stageS0:
			if !d.waitIdle() {
				return
			}
			d.stage = stageS1
			d.pendingEval = false

		case stageS1:
			if d.pendingEval {
				d.evalMKCBPage()
				d.iterElem++
				d.pendingEval = false
			}
			q := &d.queues[d.iterQueue]
			if d.iterElem < q.NumEntriesMax {
				d.iterPage = firstPageOfQueue(q, d.desc.PagesPerSector, d.iterElem)
				d.emitReadData(d.iterPage, headerSize)
				d.pendingEval = true
				return
			}

			if q.Initialised {
				if !d.advanceToNextUninitQueue() {
					d.finishJob()
					return
				}
				d.iterElem = 0
				d.pendingEval = false
				continue
			}

			// Queue scanned fully with no free page found: it is full.
			// Erase the sector holding the oldest record and rescan.
			d.emitWriteEnable()
			d.stage = stageS2
			return

		case stageS2:
			q := &d.queues[d.iterQueue]
			d.emitEraseSector(q.StartPageIDMin)
			d.stage = stageS3
			return

		case stageS3:
			q := &d.queues[d.iterQueue]
			q.NumEntries = 0
			q.IDNumMin = math.MaxUint32
			q.StartPageIDMin = 0
			d.iterElem = 0
			d.pendingEval = false
			d.stage = stageS0
		}
	}
}

// evalMKCBPage classifies the response to the header read issued for
// iterPage and updates the owning queue's live state (§4.4 S1.1-S1.2).
func (d *Driver) evalMKCBPage() {
	q := &d.queues[d.iterQueue]
	resp := d.spiBuf[4 : 4+headerSize]

	hdr := decodeHeader(resp)
	if hdr.Magic == q.MagicNum {
		q.NumEntries++
		if hdr.ID > q.IDNumMax {
			q.IDNumMax = hdr.ID
		}
		if hdr.ID < q.IDNumMin {
			q.IDNumMin = hdr.ID
			q.StartPageIDMin = d.iterPage
		}
		return
	}

	if !q.Initialised && isErased(resp) {
		q.StartPageWrite = d.iterPage
		q.Initialised = true
	}
	// else: corrupt header, skip — no recovery is attempted.
}

// stepAdd drives the page-by-page append (§4.5): write-enable, then a
// page-program per page, polling WIP to idle between each one.
func (d *Driver) stepAdd() {
	for {
		switch d.stage {
		case stageS0:
			if !d.waitIdle() {
				return
			}
			d.stage = stageS1

		case stageS1:
			if int(d.iterElem) < len(d.dataPtr) {
				d.emitWriteEnable()
				d.stage = stageS2
				return
			}
			d.finishJob()
			return

		case stageS2:
			d.emitPageProgramFragment()
			d.iterPage++
			d.stage = stageS0
			return
		}
	}
}

// emitPageProgramFragment builds the page-program packet for the current
// iterPage, prepending the record header on the first fragment.
func (d *Driver) emitPageProgramFragment() {
	pageSize := int(d.desc.PageSizeBytes)
	addr := pageToByteAddr(d.iterPage, d.desc.PageSizeBytes)

	d.spiBuf[0] = d.desc.OpPageProgram
	d.spiBuf[1] = byte(addr >> 16)
	d.spiBuf[2] = byte(addr >> 8)
	d.spiBuf[3] = byte(addr)

	off := 4
	if d.iterElem == 0 {
		hdr := encodeHeader(d.addHeader)
		off += copy(d.spiBuf[off:], hdr[:])
	}

	capacity := pageSize - (off - 4)
	remaining := len(d.dataPtr) - int(d.iterElem)
	chunk := min(capacity, remaining)
	off += copy(d.spiBuf[off:], d.dataPtr[d.iterElem:int(d.iterElem)+chunk])

	d.iterElem += uint16(chunk)
	d.spiLen = uint16(off)
}

// stepGet drives the oldest-record read (§4.6): wait idle, read the whole
// record (header+payload) in one transfer, then copy the payload portion
// into the caller's buffer.
func (d *Driver) stepGet() {
	switch d.stage {
	case stageS0:
		if !d.waitIdle() {
			return
		}
		d.stage = stageS1
		fallthrough

	case stageS1:
		q := &d.queues[d.iterQueue]
		recordLen := int(q.PagesPerElement) * int(d.desc.PageSizeBytes)
		if 4+recordLen > SPIBufSize {
			d.failJob(ErrSPIBufSize)
			return
		}
		d.emitReadData(q.StartPageIDMin, recordLen)
		d.stage = stageS2

	case stageS2:
		q := &d.queues[d.iterQueue]
		recordLen := int(q.PagesPerElement) * int(d.desc.PageSizeBytes)
		payload := d.spiBuf[4+headerSize : 4+recordLen]
		n := copy(d.dataPtr, payload)
		d.lastN = n
		d.finishJob()
	}
}

// stepRaw drives the direct flash read (§4.7).
func (d *Driver) stepRaw() {
	switch d.stage {
	case stageS0:
		if !d.waitIdle() {
			return
		}
		d.stage = stageS1
		fallthrough

	case stageS1:
		n := len(d.dataPtr)
		if 4+n > SPIBufSize {
			d.failJob(ErrSPIBufSize)
			return
		}
		addr := d.rawAddr
		d.spiBuf[0] = d.desc.OpReadData
		d.spiBuf[1] = byte(addr >> 16)
		d.spiBuf[2] = byte(addr >> 8)
		d.spiBuf[3] = byte(addr)
		for i := 0; i < n; i++ {
			d.spiBuf[4+i] = 0
		}
		d.spiLen = uint16(4 + n)
		d.stage = stageS2

	case stageS2:
		n := copy(d.dataPtr, d.spiBuf[4:4+len(d.dataPtr)])
		d.lastN = n
		d.finishJob()
	}
}
