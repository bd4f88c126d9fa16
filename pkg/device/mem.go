package device

import (
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfstypes"
)

// MemDevice is an in-memory BlockReader, used to synthesize APFS images for
// tests without a real disk or DMG file.
type MemDevice struct {
	blocks    map[apfstypes.Paddr][]byte
	blockSize uint32
	total     uint64
	reads     int // number of ReadBlock calls, for cache-hit assertions
}

// NewMemDevice creates an empty device with the given block size and block count.
func NewMemDevice(blockSize uint32, totalBlocks uint64) *MemDevice {
	return &MemDevice{
		blocks:    make(map[apfstypes.Paddr][]byte),
		blockSize: blockSize,
		total:     totalBlocks,
	}
}

// PutBlock installs the bytes for block bno, padding or truncating to the
// device's block size.
func (d *MemDevice) PutBlock(bno apfstypes.Paddr, data []byte) {
	buf := make([]byte, d.blockSize)
	copy(buf, data)
	d.blocks[bno] = buf
}

// ReadBlock implements BlockReader.
func (d *MemDevice) ReadBlock(bno apfstypes.Paddr) ([]byte, error) {
	d.reads++
	buf, ok := d.blocks[bno]
	if !ok {
		return nil, fmt.Errorf("read block %d: no such block", bno)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// BlockSize implements BlockReader.
func (d *MemDevice) BlockSize() uint32 { return d.blockSize }

// SetBlockSize implements BlockReader; a MemDevice's size is fixed at
// construction, so this only succeeds when n already matches.
func (d *MemDevice) SetBlockSize(n uint32) bool { return n == d.blockSize }

// TotalBlocks implements BlockReader.
func (d *MemDevice) TotalBlocks() uint64 { return d.total }

// ReadCount returns the number of ReadBlock calls made so far, letting tests
// assert that a cache hit avoided a catalog lookup.
func (d *MemDevice) ReadCount() int { return d.reads }
