package apfstypes

// OmapPhysT is an object map: a B-tree mapping (oid, xid) pairs to the
// physical address and size of the object version they identify.
type OmapPhysT struct {
	// The object's header.
	OmO ObjPhysT
	// Object map flags; unused by this read-only core.
	OmFlags uint32
	// The physical object identifier (block address) of the tree used for
	// object mappings.
	OmTreeOid OidT
}

// OmapKeyT is the key half of an object map B-tree entry. Ordering is by
// Oid ascending, then by Xid ascending for equal Oid.
type OmapKeyT struct {
	OkOid OidT
	OkXid XidT
}

// OmapValT is the value half of an object map B-tree entry.
type OmapValT struct {
	// Object map value flags; unused by this read-only core.
	OvFlags uint32
	// The size, in bytes, of the mapped object. Always a multiple of the
	// container's block size, or one block if the object is smaller.
	OvSize uint32
	// The physical address of the mapped object.
	OvPaddr Paddr
}

// OmapKeySize and OmapValSize are the fixed on-disk sizes of OmapKeyT and
// OmapValT, used by the B-tree engine to decode object map leaves without a
// table-of-contents length for each entry.
const (
	OmapKeySize = 16
	OmapValSize = 16
)
