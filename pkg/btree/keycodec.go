package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
)

// Mode supplies the engine with everything that differs between an object
// map and a catalog: entry sizes, key ordering, how a non-leaf value turns
// into a child block address, and whether a leaf entry actually satisfies
// the query (an object map floor match still has to agree on object id; a
// file-extent match has to contain the requested logical block).
type Mode struct {
	// KeySize returns the encoded key size for a node at the given
	// leaf-ness, or -1 if the node stores explicit per-entry lengths.
	KeySize func(isLeaf bool) int
	// ValSize mirrors KeySize for values.
	ValSize func(isLeaf bool) int
	// Compare orders an encoded query key against an encoded candidate key
	// taken from a node at the given leaf-ness. Negative means query sorts
	// before candidate, zero equal, positive after.
	Compare func(query, candidate []byte, isLeaf bool) int
	// ChildAddr resolves a non-leaf entry's value to the block address of
	// the child node to descend into.
	ChildAddr func(val []byte) (apfstypes.Paddr, error)
	// Accept reports whether a leaf entry located by descent actually
	// answers the query (not merely sorts near it).
	Accept func(query, key, val []byte) bool
}

// Entry decodes table-of-contents entry i of n under mode.
func (n *Node) Entry(i int, mode Mode) (key, val []byte, err error) {
	if i < 0 || i >= n.NumRecords() {
		return nil, nil, apfserr.Corruptf(fmt.Sprintf("oid %d", n.Hdr.BtnO.Oid), "entry index %d out of range (%d records)", i, n.NumRecords())
	}
	ks := mode.KeySize(n.IsLeaf())
	vs := mode.ValSize(n.IsLeaf())
	if ks < 0 || vs < 0 {
		return n.varEntry(i)
	}
	return n.fixedEntry(i, ks, vs)
}

// --- object map key ordering -----------------------------------------------

// EncodeOmapKey encodes an object-map key as it's stored on disk: oid then
// xid, both little-endian.
func EncodeOmapKey(oid apfstypes.OidT, xid apfstypes.XidT) []byte {
	buf := make([]byte, apfstypes.OmapKeySize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(oid))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(xid))
	return buf
}

func decodeOmapKey(b []byte) (apfstypes.OidT, apfstypes.XidT) {
	oid := apfstypes.OidT(binary.LittleEndian.Uint64(b[0:8]))
	xid := apfstypes.XidT(binary.LittleEndian.Uint64(b[8:16]))
	return oid, xid
}

// OmapMode builds the object-map ordering: keys are always the full 16-byte
// (oid, xid) pair whether the node is a leaf or not, and a non-leaf value is
// the child's block address directly (object maps address children
// physically, so there's no further indirection to resolve). Descent finds
// the greatest key not exceeding the query; Accept then checks that the
// landed entry's oid actually matches, since the floor of a query for an oid
// that doesn't exist in the tree may land on an unrelated smaller oid.
func OmapMode() Mode {
	return Mode{
		KeySize: func(isLeaf bool) int { return apfstypes.OmapKeySize },
		ValSize: func(isLeaf bool) int {
			if isLeaf {
				return apfstypes.OmapValSize
			}
			return 8
		},
		Compare: func(query, candidate []byte, isLeaf bool) int {
			qOid, qXid := decodeOmapKey(query)
			cOid, cXid := decodeOmapKey(candidate)
			if qOid != cOid {
				if qOid < cOid {
					return -1
				}
				return 1
			}
			switch {
			case qXid < cXid:
				return -1
			case qXid > cXid:
				return 1
			default:
				return 0
			}
		},
		ChildAddr: func(val []byte) (apfstypes.Paddr, error) {
			if len(val) != 8 {
				return 0, apfserr.Corruptf("omap", "non-leaf value has unexpected length %d", len(val))
			}
			return apfstypes.Paddr(binary.LittleEndian.Uint64(val)), nil
		},
		Accept: func(query, key, val []byte) bool {
			qOid, _ := decodeOmapKey(query)
			cOid, _ := decodeOmapKey(key)
			return qOid == cOid
		},
	}
}

// DecodeOmapValue decodes a leaf value under OmapMode.
func DecodeOmapValue(val []byte) (apfstypes.OmapValT, error) {
	if len(val) != apfstypes.OmapValSize {
		return apfstypes.OmapValT{}, apfserr.Corruptf("omap", "value has unexpected length %d", len(val))
	}
	return apfstypes.OmapValT{
		OvFlags: binary.LittleEndian.Uint32(val[0:4]),
		OvSize:  binary.LittleEndian.Uint32(val[4:8]),
		OvPaddr: apfstypes.Paddr(binary.LittleEndian.Uint64(val[8:16])),
	}, nil
}

// --- catalog (file-extent) key ordering ------------------------------------

// EncodeJKeyHeader encodes the fixed, tail-less record header used as the
// separator key in non-leaf catalog nodes.
func EncodeJKeyHeader(k apfstypes.JKeyT) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, k.ObjIdAndType)
	return buf
}

func decodeJKeyHeader(b []byte) apfstypes.JKeyT {
	return apfstypes.JKeyT{ObjIdAndType: binary.LittleEndian.Uint64(b[0:8])}
}

// EncodeFileExtentKey encodes a full leaf key for a file-extent record:
// header plus logical address.
func EncodeFileExtentKey(objId uint64, logicalAddr uint64) []byte {
	buf := make([]byte, apfstypes.JFileExtentKeySize)
	hdr := apfstypes.MakeJKey(apfstypes.ApfsTypeFileExtent, objId)
	binary.LittleEndian.PutUint64(buf[0:8], hdr.ObjIdAndType)
	binary.LittleEndian.PutUint64(buf[8:16], logicalAddr)
	return buf
}

func decodeFileExtentKey(b []byte) apfstypes.JFileExtentKeyT {
	return apfstypes.JFileExtentKeyT{
		Hdr:         apfstypes.JKeyT{ObjIdAndType: binary.LittleEndian.Uint64(b[0:8])},
		LogicalAddr: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// DecodeFileExtentKey decodes a leaf key under CatalogFileExtentMode. The
// caller is expected to have already confirmed (e.g. via a successful
// Lookup) that the key is a full file-extent key rather than some other
// record's shorter header.
func DecodeFileExtentKey(b []byte) (apfstypes.JFileExtentKeyT, error) {
	if len(b) != apfstypes.JFileExtentKeySize {
		return apfstypes.JFileExtentKeyT{}, apfserr.Corruptf("catalog", "file-extent key has unexpected length %d", len(b))
	}
	return decodeFileExtentKey(b), nil
}

// DecodeFileExtentValue decodes a leaf value under CatalogFileExtentMode.
func DecodeFileExtentValue(val []byte) (apfstypes.JFileExtentValT, error) {
	if len(val) != apfstypes.JFileExtentValSize {
		return apfstypes.JFileExtentValT{}, apfserr.Corruptf("catalog", "file-extent value has unexpected length %d", len(val))
	}
	return apfstypes.JFileExtentValT{
		LenAndFlags:  binary.LittleEndian.Uint64(val[0:8]),
		PhysBlockNum: binary.LittleEndian.Uint64(val[8:16]),
		CryptoId:     binary.LittleEndian.Uint64(val[16:24]),
	}, nil
}

// CatalogFileExtentMode builds the catalog ordering used to resolve
// (inode, logical block) to a file-extent record. Non-leaf nodes carry only
// the 8-byte record header as their key (object id + record type, no tail)
// and an 8-byte child oid as their value, which resolve requires indirecting
// through the volume object map (children of the catalog are addressed
// virtually, unlike the object map's own children). Leaf nodes carry the
// full 16-byte (header, logical address) key. Ordering is primarily by
// object id, then by record type, then — for leaf keys of matching object
// id and type — by logical address; this lets a query with object id X and
// type FILE_EXTENT correctly descend past inode and xattr records for the
// same object id, which sort before it.
func CatalogFileExtentMode(resolve func(oid uint64) (apfstypes.Paddr, error)) Mode {
	return Mode{
		// Leaf nodes mix record kinds of different sizes (inode, xattr,
		// dirent, file-extent, ...), so their table of contents always
		// carries explicit per-entry lengths; only non-leaf separator
		// entries are uniform enough to omit them.
		KeySize: func(isLeaf bool) int {
			if isLeaf {
				return -1
			}
			return 8
		},
		ValSize: func(isLeaf bool) int {
			if isLeaf {
				return -1
			}
			return 8
		},
		Compare: func(query, candidate []byte, isLeaf bool) int {
			qHdr := decodeJKeyHeader(query[:8])
			cHdr := decodeJKeyHeader(candidate[:8])
			if c := compareHeader(qHdr, cHdr); c != 0 || !isLeaf {
				return c
			}
			if len(query) < apfstypes.JFileExtentKeySize || len(candidate) < apfstypes.JFileExtentKeySize {
				// Same object id and record type but one side isn't
				// actually a file-extent record's tail (e.g. the inode
				// record sharing this object id); sort it first so descent
				// keeps moving toward entries that could match.
				return 1
			}
			qKey := decodeFileExtentKey(query)
			cKey := decodeFileExtentKey(candidate)
			switch {
			case qKey.LogicalAddr < cKey.LogicalAddr:
				return -1
			case qKey.LogicalAddr > cKey.LogicalAddr:
				return 1
			default:
				return 0
			}
		},
		ChildAddr: func(val []byte) (apfstypes.Paddr, error) {
			if len(val) != 8 {
				return 0, apfserr.Corruptf("catalog", "non-leaf value has unexpected length %d", len(val))
			}
			oid := binary.LittleEndian.Uint64(val)
			return resolve(oid)
		},
		Accept: func(query, key, val []byte) bool {
			if len(key) < apfstypes.JFileExtentKeySize {
				// Floor landed on some other record kind for the same
				// object id (e.g. its inode), not a file-extent record.
				return false
			}
			qKey := decodeFileExtentKey(query)
			cKey := decodeFileExtentKey(key)
			if qKey.Hdr.ObjId() != cKey.Hdr.ObjId() || cKey.Hdr.Type() != apfstypes.ApfsTypeFileExtent {
				return false
			}
			cVal, err := DecodeFileExtentValue(val)
			if err != nil {
				return false
			}
			start := cKey.LogicalAddr
			end := start + cVal.Len()
			return qKey.LogicalAddr >= start && qKey.LogicalAddr < end
		},
	}
}

func compareHeader(q, c apfstypes.JKeyT) int {
	if q.ObjId() != c.ObjId() {
		if q.ObjId() < c.ObjId() {
			return -1
		}
		return 1
	}
	if q.Type() != c.Type() {
		if q.Type() < c.Type() {
			return -1
		}
		return 1
	}
	return 0
}
