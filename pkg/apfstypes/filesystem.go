package apfstypes

// JObjType identifies the kind of file-system record a catalog key names.
type JObjType uint8

// Record kinds this core distinguishes; the catalog carries several more
// (xattr, sibling, snapshot metadata, ...) that directory/xattr decoding
// owns and that this block-mapping core never interprets.
const (
	ApfsTypeAny         JObjType = 0
	ApfsTypeInode       JObjType = 3
	ApfsTypeXattr       JObjType = 4
	ApfsTypeFileExtent  JObjType = 8
	ApfsTypeDirRec      JObjType = 9
)

// ObjIdMask and ObjTypeShift split a catalog key header's 64-bit
// ObjIdAndType field into the object id (low 60 bits) and record type
// (high 4 bits).
const (
	ObjIdMask   uint64 = 0x0fffffffffffffff
	ObjTypeMask uint64 = 0xf000000000000000
	ObjTypeShift        = 60
)

// JKeyT is the header shared by every catalog key: a type tag and the
// identifier of the file-system object the record belongs to.
type JKeyT struct {
	ObjIdAndType uint64
}

// ObjId returns the owning object's identifier.
func (k JKeyT) ObjId() uint64 { return k.ObjIdAndType & ObjIdMask }

// Type returns the record's kind.
func (k JKeyT) Type() JObjType { return JObjType(k.ObjIdAndType >> ObjTypeShift) }

// MakeJKey packs an object id and record type into a catalog key header.
func MakeJKey(t JObjType, objId uint64) JKeyT {
	return JKeyT{ObjIdAndType: (uint64(t) << ObjTypeShift) | (objId & ObjIdMask)}
}

// JFileExtentKeyT is the key half of a file-extent record: the owning
// object's catalog header, plus the logical byte offset the extent starts at.
type JFileExtentKeyT struct {
	Hdr         JKeyT
	LogicalAddr uint64
}

// JFileExtentValT is the value half of a file-extent record.
type JFileExtentValT struct {
	// Low 56 bits: byte length of the extent, a multiple of the block size.
	// High 8 bits: flags; none are currently defined.
	LenAndFlags uint64
	// The physical block the extent starts at, or zero for a hole.
	PhysBlockNum uint64
	// The per-extent encryption key/tweak identifier; opaque to this core.
	CryptoId uint64
}

const (
	JFileExtentLenMask   uint64 = 0x00ffffffffffffff
	JFileExtentFlagShift        = 56
)

// Len returns the extent's byte length.
func (v JFileExtentValT) Len() uint64 { return v.LenAndFlags & JFileExtentLenMask }

// JFileExtentKeySize and JFileExtentValSize are the fixed on-disk sizes of
// a file-extent record's key and value.
const (
	JFileExtentKeySize = 16 // ObjIdAndType(8) + LogicalAddr(8)
	JFileExtentValSize = 24 // LenAndFlags(8) + PhysBlockNum(8) + CryptoId(8)
)
