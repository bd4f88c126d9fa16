package extent

import (
	"encoding/binary"
	"testing"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/btree"
	"github.com/coreblocks/apfscore/pkg/checksum"
	"github.com/coreblocks/apfscore/pkg/device"
)

const blockSize = 4096

func stampChecksum(raw []byte) {
	cksum := checksum.Fletcher64(raw)
	binary.LittleEndian.PutUint64(raw[0:8], cksum)
}

// writeCatalogLeaf installs a single-level variable-kv catalog leaf holding
// the given file-extent records, in ascending logical-address order.
func writeCatalogLeaf(dev *device.MemDevice, bno apfstypes.Paddr, objId uint64, extents [][2]uint64) {
	const headerSize = 32 + 2 + 2 + 4 + 2 + 2 + 2 + 2
	type rec struct{ key, val []byte }
	var recs []rec
	for _, ext := range extents {
		logicalAddr, lenBytes := ext[0], ext[1]
		key := btree.EncodeFileExtentKey(objId, logicalAddr)
		val := make([]byte, apfstypes.JFileExtentValSize)
		binary.LittleEndian.PutUint64(val[0:8], lenBytes)
		binary.LittleEndian.PutUint64(val[8:16], logicalAddr/blockSize+1000) // arbitrary distinguishable phys block
		recs = append(recs, rec{key, val})
	}

	tableLen := len(recs) * 8
	dataLen := blockSize - headerSize
	data := make([]byte, dataLen)

	koff := 0
	voffFor := make([]int, len(recs))
	voff := 0
	for i := len(recs) - 1; i >= 0; i-- {
		voffFor[i] = voff
		voff += len(recs[i].val)
	}
	for i, rc := range recs {
		keyStart := tableLen + koff
		copy(data[keyStart:keyStart+len(rc.key)], rc.key)
		valEnd := dataLen - voffFor[i]
		valStart := valEnd - len(rc.val)
		copy(data[valStart:valEnd], rc.val)

		entryOff := i * 8
		binary.LittleEndian.PutUint16(data[entryOff:entryOff+2], uint16(koff))
		binary.LittleEndian.PutUint16(data[entryOff+2:entryOff+4], uint16(len(rc.key)))
		binary.LittleEndian.PutUint16(data[entryOff+4:entryOff+6], uint16(voffFor[i]))
		binary.LittleEndian.PutUint16(data[entryOff+6:entryOff+8], uint16(len(rc.val)))
		koff += len(rc.key)
	}

	raw := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(raw[24:28], apfstypes.ObjectTypeBtreeNode)
	binary.LittleEndian.PutUint16(raw[32:34], apfstypes.BtnodeLeaf)
	binary.LittleEndian.PutUint32(raw[36:40], uint32(len(recs)))
	binary.LittleEndian.PutUint16(raw[42:44], uint16(tableLen))
	copy(raw[headerSize:], data)
	stampChecksum(raw)
	dev.PutBlock(bno, raw)
}

func newResolver(dev *device.MemDevice, catalogRoot apfstypes.Paddr) *Resolver {
	// VolOmapRoot is unused by these tests: the catalog root here is a leaf,
	// so no non-leaf descent step ever calls back into the object map.
	return &Resolver{Reader: dev, CatalogRoot: catalogRoot, BlockSize: blockSize}
}

func TestResolveFindsCoveringExtent(t *testing.T) {
	dev := device.NewMemDevice(blockSize, 16)
	writeCatalogLeaf(dev, 9, 42, [][2]uint64{{0, blockSize * 4}})
	res := newResolver(dev, 9)

	e, err := res.Resolve(&Inode{ExtentOid: 42}, 2)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if e.PhysBlockNum != 1000 {
		t.Fatalf("got phys block %d, want 1000", e.PhysBlockNum)
	}
}

func TestResolveCacheHitAvoidsSecondLookup(t *testing.T) {
	dev := device.NewMemDevice(blockSize, 16)
	writeCatalogLeaf(dev, 9, 42, [][2]uint64{{0, blockSize * 4}})
	res := newResolver(dev, 9)
	inode := &Inode{ExtentOid: 42}

	if _, err := res.Resolve(inode, 0); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	readsAfterFirst := dev.ReadCount()

	if _, err := res.Resolve(inode, 1); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if dev.ReadCount() != readsAfterFirst {
		t.Fatalf("expected cache hit to avoid further reads, went from %d to %d", readsAfterFirst, dev.ReadCount())
	}
}

func TestGetBlockReportsHole(t *testing.T) {
	dev := device.NewMemDevice(blockSize, 16)
	// a hole extent: phys block number zero.
	key := btree.EncodeFileExtentKey(42, 0)
	val := make([]byte, apfstypes.JFileExtentValSize)
	binary.LittleEndian.PutUint64(val[0:8], blockSize*2)
	binary.LittleEndian.PutUint64(val[8:16], 0)
	writeRawLeaf(dev, 9, key, val)
	res := newResolver(dev, 9)

	m, err := res.GetBlock(&Inode{ExtentOid: 42}, 0, blockSize, false)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if !m.Hole {
		t.Fatal("expected a hole mapping")
	}
}

func TestGetBlockClipsToExtentRemainder(t *testing.T) {
	dev := device.NewMemDevice(blockSize, 16)
	writeCatalogLeaf(dev, 9, 42, [][2]uint64{{0, blockSize * 4}})
	res := newResolver(dev, 9)

	m, err := res.GetBlock(&Inode{ExtentOid: 42}, 3, blockSize*10, false)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if m.MappedBytes != blockSize {
		t.Fatalf("got mapped bytes %d, want %d (one block remaining in the extent)", m.MappedBytes, blockSize)
	}
}

func TestGetBlockWantWriteReadOnly(t *testing.T) {
	dev := device.NewMemDevice(blockSize, 16)
	writeCatalogLeaf(dev, 9, 42, [][2]uint64{{0, blockSize * 4}})
	res := newResolver(dev, 9)

	_, err := res.GetBlock(&Inode{ExtentOid: 42}, 0, blockSize, true)
	if !apfserr.Is(err, apfserr.ReadOnly) {
		t.Fatalf("expected ReadOnly, got %v", err)
	}
}

// writeRawLeaf installs a single explicit (key, val) record as a variable-kv
// leaf, for fixtures that need values writeCatalogLeaf's helper doesn't build.
func writeRawLeaf(dev *device.MemDevice, bno apfstypes.Paddr, key, val []byte) {
	const headerSize = 32 + 2 + 2 + 4 + 2 + 2 + 2 + 2
	dataLen := blockSize - headerSize
	data := make([]byte, dataLen)

	binary.LittleEndian.PutUint16(data[0:2], 0)
	binary.LittleEndian.PutUint16(data[2:4], uint16(len(key)))
	binary.LittleEndian.PutUint16(data[4:6], 0)
	binary.LittleEndian.PutUint16(data[6:8], uint16(len(val)))
	copy(data[8:8+len(key)], key)
	copy(data[dataLen-len(val):], val)

	raw := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(raw[24:28], apfstypes.ObjectTypeBtreeNode)
	binary.LittleEndian.PutUint16(raw[32:34], apfstypes.BtnodeLeaf)
	binary.LittleEndian.PutUint32(raw[36:40], 1)
	binary.LittleEndian.PutUint16(raw[42:44], 8)
	copy(raw[headerSize:], data)
	stampChecksum(raw)
	dev.PutBlock(bno, raw)
}
