// Package btree implements the generic on-disk B-tree substrate shared by
// the container/volume object maps and the volume catalog: node loading and
// checksum verification, table-of-contents decoding for both fixed- and
// variable-size entries, and an ordered lookup engine parameterized by a
// comparator, a child resolver, and a leaf-acceptance predicate.
package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/checksum"
	"github.com/coreblocks/apfscore/pkg/device"
)

// nodeHeaderSize is the fixed-size portion of a BtreeNodePhysT preceding
// BtnData: the 32-byte object header plus the node-info fields (flags,
// level, key count, and the four table/free-space offsets, each uint16
// except the uint32 key count).
const nodeHeaderSize = 32 + 2 + 2 + 4 + 2 + 2 + 2 + 2

// Node is a decoded, read-only view of one on-disk B-tree node. It owns the
// block bytes it was decoded from; nothing else mutates them, so it's safe
// to share a *Node across concurrent readers without further locking. There
// is no explicit release step: the node's lifetime is ordinary Go garbage
// collection, and any Cursor built from it keeps it reachable simply by
// holding a reference.
type Node struct {
	Addr   apfstypes.Paddr
	Hdr    apfstypes.BtreeNodePhysT
	blkLen int
}

// maxLevel bounds B-tree recursion depth; anything deeper is structurally
// impossible for a real volume and is treated as corruption.
const maxLevel = 16

// Load reads the block at addr, verifies its checksum, and decodes it as a
// B-tree node.
func Load(r device.BlockReader, addr apfstypes.Paddr) (*Node, error) {
	raw, err := r.ReadBlock(addr)
	if err != nil {
		return nil, apfserr.Wrap(apfserr.Io, fmt.Sprintf("block %d", addr), "read block", err)
	}
	if len(raw) < nodeHeaderSize {
		return nil, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "block shorter than node header (%d bytes)", len(raw))
	}

	stored := binary.LittleEndian.Uint64(raw[0:8])
	if !checksum.Verify(raw, stored) {
		return nil, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "node checksum mismatch")
	}

	var n Node
	n.Addr = addr
	n.blkLen = len(raw)
	n.Hdr.BtnO.Checksum = [8]byte{}
	copy(n.Hdr.BtnO.Checksum[:], raw[0:8])
	n.Hdr.BtnO.Oid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[8:16]))
	n.Hdr.BtnO.Xid = apfstypes.XidT(binary.LittleEndian.Uint64(raw[16:24]))
	n.Hdr.BtnO.Type = binary.LittleEndian.Uint32(raw[24:28])
	n.Hdr.BtnO.Subtype = binary.LittleEndian.Uint32(raw[28:32])

	n.Hdr.BtnFlags = binary.LittleEndian.Uint16(raw[32:34])
	n.Hdr.BtnLevel = binary.LittleEndian.Uint16(raw[34:36])
	n.Hdr.BtnNkeys = binary.LittleEndian.Uint32(raw[36:40])
	n.Hdr.BtnTableSpaceOff = binary.LittleEndian.Uint16(raw[40:42])
	n.Hdr.BtnTableSpaceLen = binary.LittleEndian.Uint16(raw[42:44])
	n.Hdr.BtnFreeSpaceOff = binary.LittleEndian.Uint16(raw[44:46])
	n.Hdr.BtnFreeSpaceLen = binary.LittleEndian.Uint16(raw[46:48])
	n.Hdr.BtnData = raw[nodeHeaderSize:]

	if n.Hdr.BtnLevel > maxLevel {
		return nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "btree level %d exceeds sanity bound", n.Hdr.BtnLevel)
	}
	if n.Hdr.BtnNkeys == 0 {
		return nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "node has zero entries")
	}

	return &n, nil
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Hdr.IsLeaf() }

// Level is the node's distance from the leaves (zero for a leaf).
func (n *Node) Level() uint16 { return n.Hdr.BtnLevel }

// NumRecords is the number of key/value entries stored in the node.
func (n *Node) NumRecords() int { return int(n.Hdr.BtnNkeys) }

// dataRegion returns the node's key/value storage area.
func (n *Node) dataRegion() []byte { return n.Hdr.BtnData }

// fixedEntry decodes table-of-contents entry i as a KvoffT and returns the
// key and value slices, given the fixed sizes for this node's keys and
// values at its level. keySize/valSize are a property of the mode (object
// map or catalog) and of whether the node is a leaf, not of the node itself.
func (n *Node) fixedEntry(i, keySize, valSize int) (key, val []byte, err error) {
	data := n.dataRegion()
	tocStart := int(n.Hdr.BtnTableSpaceOff)
	const kvoffSize = 4
	entryOff := tocStart + i*kvoffSize
	if entryOff+kvoffSize > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "toc entry %d out of bounds", i)
	}
	koff := int(binary.LittleEndian.Uint16(data[entryOff : entryOff+2]))
	voff := int(binary.LittleEndian.Uint16(data[entryOff+2 : entryOff+4]))

	keyAreaStart := tocStart + int(n.Hdr.BtnTableSpaceLen)
	keyStart := keyAreaStart + koff
	if keyStart < 0 || keyStart+keySize > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "entry %d key offset out of key region", i)
	}

	valEnd := len(data) - voff
	valStart := valEnd - valSize
	if valStart < 0 || valEnd > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "entry %d value offset out of value region", i)
	}

	return data[keyStart : keyStart+keySize], data[valStart:valEnd], nil
}

// varEntry decodes table-of-contents entry i as a KvlocT, returning the key
// and value slices using the lengths stored alongside their offsets.
func (n *Node) varEntry(i int) (key, val []byte, err error) {
	data := n.dataRegion()
	tocStart := int(n.Hdr.BtnTableSpaceOff)
	const kvlocSize = 8
	entryOff := tocStart + i*kvlocSize
	if entryOff+kvlocSize > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "toc entry %d out of bounds", i)
	}
	koff := int(binary.LittleEndian.Uint16(data[entryOff : entryOff+2]))
	klen := int(binary.LittleEndian.Uint16(data[entryOff+2 : entryOff+4]))
	voff := int(binary.LittleEndian.Uint16(data[entryOff+4 : entryOff+6]))
	vlen := int(binary.LittleEndian.Uint16(data[entryOff+6 : entryOff+8]))

	keyAreaStart := tocStart + int(n.Hdr.BtnTableSpaceLen)
	keyStart := keyAreaStart + koff
	if keyStart < 0 || keyStart+klen > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "entry %d key range out of key region", i)
	}

	valEnd := len(data) - voff
	valStart := valEnd - vlen
	if valStart < 0 || valEnd > len(data) {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "entry %d value range out of value region", i)
	}

	return data[keyStart : keyStart+klen], data[valStart:valEnd], nil
}
