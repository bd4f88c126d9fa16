package btree

import (
	"encoding/binary"
	"testing"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/checksum"
	"github.com/coreblocks/apfscore/pkg/device"
)

const testBlockSize = 4096

type kv struct{ key, val []byte }

// writeNode synthesizes one checksummed node and installs it on dev at bno.
func writeNode(dev *device.MemDevice, bno apfstypes.Paddr, oid apfstypes.OidT, level uint16, leaf, fixedKv bool, entries []kv) {
	flags := uint16(0)
	if leaf {
		flags |= apfstypes.BtnodeLeaf
	}
	if fixedKv {
		flags |= apfstypes.BtnodeFixedKvSize
	}

	entrySize := 8
	if fixedKv {
		entrySize = 4
	}
	tableLen := len(entries) * entrySize

	dataLen := testBlockSize - nodeHeaderSize
	data := make([]byte, dataLen)

	koff := 0
	voff := 0
	// value offsets are measured from the end of data, so compute them in
	// reverse entry order first.
	voffFor := make([]int, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		voffFor[i] = voff
		voff += len(entries[i].val)
	}

	for i, e := range entries {
		keyStart := tableLen + koff
		copy(data[keyStart:keyStart+len(e.key)], e.key)

		valEnd := dataLen - voffFor[i]
		valStart := valEnd - len(e.val)
		copy(data[valStart:valEnd], e.val)

		entryOff := i * entrySize
		if fixedKv {
			binary.LittleEndian.PutUint16(data[entryOff:entryOff+2], uint16(koff))
			binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], uint16(voffFor[i]))
		} else {
			binary.LittleEndian.PutUint16(data[entryOff:entryOff+2], uint16(koff))
			binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], uint16(len(e.key)))
			binary.LittleEndian.PutUint16(data[entryOff+4:entryOff+6], uint16(voffFor[i]))
			binary.LittleEndian.PutUint16(data[entryOff+6:entryOff+8], uint16(len(e.val)))
		}
		koff += len(e.key)
	}

	raw := make([]byte, testBlockSize)
	binary.LittleEndian.PutUint64(raw[8:16], uint64(oid))
	binary.LittleEndian.PutUint64(raw[16:24], 1) // xid
	binary.LittleEndian.PutUint32(raw[24:28], apfstypes.ObjectTypeBtreeNode)
	binary.LittleEndian.PutUint16(raw[32:34], flags)
	binary.LittleEndian.PutUint16(raw[34:36], level)
	binary.LittleEndian.PutUint32(raw[36:40], uint32(len(entries)))
	binary.LittleEndian.PutUint16(raw[40:42], 0)
	binary.LittleEndian.PutUint16(raw[42:44], uint16(tableLen))
	binary.LittleEndian.PutUint16(raw[44:46], uint16(koff))
	binary.LittleEndian.PutUint16(raw[46:48], 0)
	copy(raw[nodeHeaderSize:], data)

	cksum := checksum.Fletcher64(raw)
	binary.LittleEndian.PutUint64(raw[0:8], cksum)

	dev.PutBlock(bno, raw)
}

func TestOmapLookupFindsExactEntry(t *testing.T) {
	dev := device.NewMemDevice(testBlockSize, 8)
	entries := []kv{
		{EncodeOmapKey(10, 1), encodeOmapVal(100)},
		{EncodeOmapKey(20, 1), encodeOmapVal(200)},
		{EncodeOmapKey(30, 1), encodeOmapVal(300)},
	}
	writeNode(dev, 5, 5, 0, true, true, entries)

	cur, err := Lookup(dev, 5, OmapMode(), EncodeOmapKey(20, 1))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	val, err := DecodeOmapValue(cur.Val)
	if err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if val.OvPaddr != 200 {
		t.Fatalf("got paddr %d, want 200", val.OvPaddr)
	}
}

func TestOmapLookupMissingOidNotFound(t *testing.T) {
	dev := device.NewMemDevice(testBlockSize, 8)
	entries := []kv{
		{EncodeOmapKey(10, 1), encodeOmapVal(100)},
		{EncodeOmapKey(30, 1), encodeOmapVal(300)},
	}
	writeNode(dev, 5, 5, 0, true, true, entries)

	_, err := Lookup(dev, 5, OmapMode(), EncodeOmapKey(20, 1))
	if !apfserr.Is(err, apfserr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestOmapLookupDetectsCorruption(t *testing.T) {
	dev := device.NewMemDevice(testBlockSize, 8)
	entries := []kv{{EncodeOmapKey(10, 1), encodeOmapVal(100)}}
	writeNode(dev, 5, 5, 0, true, true, entries)

	raw, _ := dev.ReadBlock(5)
	raw[40] ^= 0xFF
	dev.PutBlock(5, raw)

	_, err := Lookup(dev, 5, OmapMode(), EncodeOmapKey(10, 1))
	if !apfserr.Is(err, apfserr.Corrupt) {
		t.Fatalf("expected Corrupt, got %v", err)
	}
}

// TestCatalogLookupThroughInternalNode exercises a two-level catalog
// descent: a root internal node holding 8-byte header-only separator keys
// and 8-byte child oids, resolved through a stub object map, down to a leaf
// holding full file-extent records.
func TestCatalogLookupThroughInternalNode(t *testing.T) {
	dev := device.NewMemDevice(testBlockSize, 16)

	const objId = 42
	leafEntries := []kv{
		{EncodeFileExtentKey(objId, 0), encodeFileExtentVal(8, 100)},
		{EncodeFileExtentKey(objId, 8), encodeFileExtentVal(8, 108)},
	}
	writeNode(dev, 9, 100, 0, true, false, leafEntries)

	rootEntries := []kv{
		{EncodeJKeyHeader(apfstypes.MakeJKey(apfstypes.ApfsTypeFileExtent, objId)), encodeChildOid(100)},
	}
	writeNode(dev, 7, 200, 1, false, true, rootEntries)

	resolve := func(oid uint64) (apfstypes.Paddr, error) {
		if oid == 100 {
			return 9, nil
		}
		return 0, apfserr.New(apfserr.NotFound, "stub-omap", "no such oid")
	}

	cur, err := Lookup(dev, 7, CatalogFileExtentMode(resolve), EncodeFileExtentKey(objId, 10))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	val, err := DecodeFileExtentValue(cur.Val)
	if err != nil {
		t.Fatalf("decode value: %v", err)
	}
	// logical block 10 falls within the second extent (addresses 8..16),
	// two blocks in, so the physical block is 108+2.
	key := decodeFileExtentKey(cur.Key)
	offsetIntoExtent := 10 - key.LogicalAddr
	if val.PhysBlockNum+offsetIntoExtent != 110 {
		t.Fatalf("got phys block %d+%d, want 110", val.PhysBlockNum, offsetIntoExtent)
	}
}

func encodeOmapVal(paddr int64) []byte {
	buf := make([]byte, apfstypes.OmapValSize)
	binary.LittleEndian.PutUint32(buf[0:4], 0)
	binary.LittleEndian.PutUint32(buf[4:8], testBlockSize)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(paddr))
	return buf
}

func encodeFileExtentVal(lenBlocks, physBlock uint64) []byte {
	buf := make([]byte, apfstypes.JFileExtentValSize)
	binary.LittleEndian.PutUint64(buf[0:8], lenBlocks)
	binary.LittleEndian.PutUint64(buf[8:16], physBlock)
	binary.LittleEndian.PutUint64(buf[16:24], 0)
	return buf
}

func encodeChildOid(oid uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, oid)
	return buf
}
