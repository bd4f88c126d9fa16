package apfstypes

// BtreeNodePhysT is a single B-tree node: an object header, a fixed node-info
// section, and a data area holding a table of contents followed by the key
// and value regions. The same layout serves leaf and non-leaf nodes, and
// both the object map and catalog trees.
type BtreeNodePhysT struct {
	// The object's header.
	BtnO ObjPhysT
	// Node flags; see Btnode* constants.
	BtnFlags uint16
	// The number of child levels below this node; zero for a leaf.
	BtnLevel uint16
	// The number of keys (and, absent ghosts, values) stored in this node.
	BtnNkeys uint32
	// Offset, from the start of BtnData, to the table of contents.
	BtnTableSpaceOff uint16
	// Length, in bytes, of the table of contents.
	BtnTableSpaceLen uint16
	// Offset, from the start of the key area, to the start of free space.
	BtnFreeSpaceOff uint16
	// Length, in bytes, of the free space between the key and value areas.
	BtnFreeSpaceLen uint16
	// The node's key/value storage area: table of contents, keys, free
	// space, and values, in that layout order.
	BtnData []byte
}

// Node flags (BtnFlags).
const (
	BtnodeRoot         uint16 = 0x0001
	BtnodeLeaf         uint16 = 0x0002
	BtnodeFixedKvSize  uint16 = 0x0004
	BtreeNodeSizeLimit        = 1 << 16
)

// IsLeaf reports whether the node has no children.
func (n *BtreeNodePhysT) IsLeaf() bool { return n.BtnFlags&BtnodeLeaf != 0 }

// IsRoot reports whether the node is a tree's root.
func (n *BtreeNodePhysT) IsRoot() bool { return n.BtnFlags&BtnodeRoot != 0 }

// HasFixedKvSize reports whether the table of contents omits key/value
// lengths because every entry has the same fixed size (true for every
// object-map node, and for non-leaf catalog nodes).
func (n *BtreeNodePhysT) HasFixedKvSize() bool { return n.BtnFlags&BtnodeFixedKvSize != 0 }

// NlocT is a byte offset/length pair locating something inside a node.
type NlocT struct {
	Off uint16
	Len uint16
}

// KvlocT is the location, within a node, of a variable-size key and value.
type KvlocT struct {
	K NlocT
	V NlocT
}

// KvoffT is the location, within a node, of a fixed-size key and value
// (used when BtnodeFixedKvSize is set).
type KvoffT struct {
	K uint16
	V uint16
}

const (
	kvlocSize = 8 // two NlocT (4 bytes each)
	kvoffSize = 4 // two uint16
)
