package regf

// On-disk layout of a Windows registry hive. All integers are little-endian.
// Cell indexes are relative to the first hive bin at HiveDataBase.

const (
	Signature     = "regf"
	HBINSignature = "hbin"

	// HeaderSize is the size of the base block.
	HeaderSize = 0x1000

	// HiveDataBase is where the first hive bin starts.
	HiveDataBase = 0x1000

	// HBINHeaderSize is the size of a hive bin header.
	HBINHeaderSize = 0x20

	// HBINAlignment is the size granularity of hive bins.
	HBINAlignment = 0x1000

	// CellHeaderSize is the signed size field ahead of every cell. A
	// negative size marks an allocated cell.
	CellHeaderSize = 4

	// CellAlignment is the granularity of cell sizes.
	CellAlignment = 8

	// InvalidOffset marks an unused cell index.
	InvalidOffset = 0xFFFFFFFF
)

// Base block fields.
const (
	REGFRootCellOffset  = 0x024
	REGFFileNameOffset  = 0x030
	REGFFileNameSize    = 64
	REGFCheckSumOffset  = 0x1FC
	REGFReservedSize    = REGFCheckSumOffset - (REGFFileNameOffset + REGFFileNameSize)
	REGFChecksumDwords  = 127
	REGFChecksumSpanLen = REGFChecksumDwords * 4
)

// Key node (nk) fields, relative to the cell payload.
const (
	NKFlagCompressedName = 0x20 // name stored as Latin-1 rather than UTF-16LE
	NKFlagRoot           = 0x04 // KEY_HIVE_ENTRY
	NKFixedHeaderSize    = 0x4C
)

// Subkey list signatures. lf and lh entries carry a name hint or hash next
// to each cell index; li holds bare indexes; ri indexes other lists.
const (
	SigNK = "nk"
	SigLF = "lf"
	SigLH = "lh"
	SigLI = "li"
	SigRI = "ri"
)

// List entry sizes.
const (
	ListHeaderSize = 4
	LIEntrySize    = 4
	LFEntrySize    = 8
)
