package sfcb

import "math"

// QueueDescriptor holds the geometry and live state of one registered
// circular buffer. Queues are allocated contiguously in sector space:
// queue i+1's StartSector is queue i's StopSector+1.
//
// StartPageIDMin, StartPageWrite, and the iterPage cursor on Driver are
// all absolute *page indices*, not byte addresses — consistent with the
// worked example in spec.md §8 scenario 2 (start_page_write =
// start_sector*pages_per_sector); see DESIGN.md for why this repo settles
// on page-index units over the byte-address arithmetic literally written
// in spec.md §4.4 S1.3.
type QueueDescriptor struct {
	Used        bool
	Initialised bool

	MagicNum        uint32
	PagesPerElement uint16

	StartSector uint32
	StopSector  uint32

	NumEntriesMax uint16
	NumEntries    uint16

	IDNumMin uint32
	IDNumMax uint32

	StartPageIDMin uint32
	StartPageWrite uint32
}

// RegisterQueue allocates the next free slot in the caller-owned queue
// table, purely in memory — no flash I/O happens here. The returned id is
// the opaque index into that table used by Mount/Append/Get.
func (d *Driver) RegisterQueue(magic uint32, elemSizeBytes, numElems int) (id int, err error) {
	if d.busy {
		return 0, ErrBusy
	}

	slot := -1
	for i := range d.queues {
		if !d.queues[i].Used {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, ErrNoSlot
	}

	var startSector uint32
	if slot > 0 {
		startSector = d.queues[slot-1].StopSector + 1
	}

	pagesPerElement := ceilDivide(elemSizeBytes+2*4, int(d.desc.PageSizeBytes))
	numSectors := max(2, ceilDivide(numElems*pagesPerElement, int(d.desc.PagesPerSector)))
	stopSector := startSector + uint32(numSectors) - 1

	d.queues[slot] = QueueDescriptor{
		Used:            true,
		Initialised:     false,
		MagicNum:        magic,
		PagesPerElement: uint16(pagesPerElement),
		StartSector:     startSector,
		StopSector:      stopSector,
		NumEntriesMax:   uint16(numSectors * int(d.desc.PagesPerSector) / pagesPerElement),
		NumEntries:      0,
		IDNumMin:        math.MaxUint32,
		IDNumMax:        0,
		StartPageIDMin:  0,
		StartPageWrite:  0,
	}
	return slot, nil
}
