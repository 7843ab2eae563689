package sfcb

// Descriptor carries the flash geometry and opcode table for one supported
// flash part. The set of supported parts is closed at build time, selected
// by index at [Driver.Init] — there is no runtime registration.
//
// Invariant: SectorSizeBytes == PagesPerSector*PageSizeBytes. Addresses are
// 24-bit big-endian on the wire.
type Descriptor struct {
	Name string

	TotalSizeBytes  uint32
	SectorSizeBytes uint32
	PageSizeBytes   uint32
	PagesPerSector  uint32

	// [N25Q32|Table 16: Command Set] / [W25Q128|8.1.2 Instruction Set Table 1]
	OpReadData     byte
	OpReadStatus   byte
	OpWriteEnable  byte
	OpEraseSector  byte
	OpPageProgram  byte
	WIPMask        byte
}

// Descriptors is the compile-time registry of supported flash parts,
// indexed by the flash_type_idx passed to [Driver.Init].
var Descriptors = []Descriptor{
	{
		Name:            "Micron N25Q032A",
		TotalSizeBytes:  32 << 20 / 8, // 32Mb
		SectorSizeBytes: 64 << 10,
		PageSizeBytes:   256,
		PagesPerSector:  (64 << 10) / 256,
		OpReadData:      0x03,
		OpReadStatus:    0x05,
		OpWriteEnable:   0x06,
		OpEraseSector:   0xD8,
		OpPageProgram:   0x02,
		WIPMask:         0x01,
	},
	{
		Name:            "Winbond W25Q128JV",
		TotalSizeBytes:  128 << 20 / 8, // 128Mb
		SectorSizeBytes: 4 << 10,
		PageSizeBytes:   256,
		PagesPerSector:  (4 << 10) / 256,
		OpReadData:      0x03,
		OpReadStatus:    0x05,
		OpWriteEnable:   0x06,
		OpEraseSector:   0x20,
		OpPageProgram:   0x02,
		WIPMask:         0x01,
	},
}

// jedecIDs maps the 3-byte JEDEC ID read back by opcode 0x9F to the index
// in Descriptors carrying that part's geometry, mirroring the
// knownFlash/flashParams lookup the teacher keys off the same [3]byte
// pattern (flash_params.go), generalised here to resolve an index into
// Descriptors instead of a standalone timing table.
var jedecIDs = map[[3]byte]int{
	{0x20, 0xBA, 0x16}: 0, // Micron N25Q032A
	{0xEF, 0x70, 0x18}: 1, // Winbond W25Q128JV
}

// DescriptorByJEDECID resolves a flash type index from its 3-byte JEDEC ID,
// for hosts that read the ID off real hardware via the transport adapter
// instead of hard-coding flash_type_idx.
func DescriptorByJEDECID(id [3]byte) (idx int, ok bool) {
	idx, ok = jedecIDs[id]
	return idx, ok
}
