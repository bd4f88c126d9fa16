// Package apfstypes holds the on-disk structures and constants used by the
// Apple File System, as described in Apple's File System Reference.
package apfstypes

// OidT is an object identifier. For a physical object its identifier is the
// logical block address where the object is stored; for an ephemeral or
// virtual object it's an opaque number resolved through an object map.
type OidT uint64

// XidT is a transaction identifier. Transactions are uniquely identified by
// a monotonically increasing number; zero is never a valid transaction id.
type XidT uint64

// OidInvalid is the reserved "no object" identifier.
const OidInvalid OidT = 0

// OidNxSuperblock is the fixed ephemeral identifier for the container superblock.
const OidNxSuperblock OidT = 1

// XidInvalid is the reserved "no transaction" identifier.
const XidInvalid XidT = 0

// Paddr is the physical address of an on-disk block. Negative values are
// never valid; the type is signed to mirror the on-disk representation.
type Paddr int64

// Valid reports whether p could be a legal physical address.
func (p Paddr) Valid() bool { return p >= 0 }

// Prange is a contiguous range of physical blocks.
type Prange struct {
	StartPaddr Paddr
	BlockCount uint64
}

// UUID is a 16-byte universally unique identifier, stored verbatim from disk.
type UUID [16]byte

// MaxCksumSize is the number of bytes used to store an object's checksum.
const MaxCksumSize = 8

// ObjPhysT is the 32-byte header present at the start of every persistent
// APFS object. The checksum covers every byte of the object after this
// header's first 8 bytes, through the end of the containing block.
type ObjPhysT struct {
	Checksum [MaxCksumSize]byte
	Oid      OidT
	Xid      XidT
	Type     uint32
	Subtype  uint32
}

// Object type masks: the low 16 bits of Type are the storage-independent
// kind, the high 16 bits are flags.
const (
	ObjectTypeMask      uint32 = 0x0000ffff
	ObjectTypeFlagsMask uint32 = 0xffff0000
)

// Object storage flags, carried in the high bits of ObjPhysT.Type.
const (
	ObjVirtual   uint32 = 0x00000000
	ObjEphemeral uint32 = 0x80000000
	ObjPhysical  uint32 = 0x40000000
	ObjNoheader  uint32 = 0x20000000
	ObjEncrypted uint32 = 0x10000000
)

// Object types this core cares about; the full Apple-defined set is much
// larger, but everything else is opaque to a read-only block-mapping core.
const (
	ObjectTypeNxSuperblock uint32 = 0x00000001
	ObjectTypeBtree        uint32 = 0x00000002
	ObjectTypeBtreeNode    uint32 = 0x00000003
	ObjectTypeOmap         uint32 = 0x0000000b
	ObjectTypeFs           uint32 = 0x0000000d
)
