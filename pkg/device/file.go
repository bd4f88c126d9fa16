package device

import (
	"fmt"
	"os"

	"github.com/coreblocks/apfscore/pkg/apfstypes"
)

// FileDevice backs a BlockReader with a raw disk image, a partition device
// node, or a .dmg file whose APFS container starts at a byte offset other
// than zero. Opening never validates the container; that's the mount path's
// job once a block size has been settled on.
type FileDevice struct {
	file      *os.File
	size      int64
	offset    int64
	blockSize uint32
}

// OpenFile opens path and wraps it as a FileDevice. offset is the byte
// offset within the file at which the APFS container begins (zero for a raw
// container image, nonzero for a container embedded in a DMG wrapper).
// The initial block size is the conservative minimum; the mount path calls
// SetBlockSize once it has read the real value from the container superblock.
func OpenFile(path string, offset int64) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &FileDevice{
		file:      f,
		size:      stat.Size(),
		offset:    offset,
		blockSize: apfstypes.MinBlockSize,
	}, nil
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error { return d.file.Close() }

// ReadBlock implements BlockReader.
func (d *FileDevice) ReadBlock(bno apfstypes.Paddr) ([]byte, error) {
	if !bno.Valid() {
		return nil, fmt.Errorf("read block: invalid address %d", bno)
	}
	buf := make([]byte, d.blockSize)
	at := d.offset + int64(bno)*int64(d.blockSize)
	if _, err := d.file.ReadAt(buf, at); err != nil {
		return nil, fmt.Errorf("read block %d: %w", bno, err)
	}
	return buf, nil
}

// BlockSize implements BlockReader.
func (d *FileDevice) BlockSize() uint32 { return d.blockSize }

// SetBlockSize implements BlockReader. A block size is accepted when it's a
// power of two within the container's supported range; the size of the
// underlying file is not consulted.
func (d *FileDevice) SetBlockSize(n uint32) bool {
	if n < apfstypes.MinBlockSize || n > apfstypes.MaxBlockSize {
		return false
	}
	if n&(n-1) != 0 {
		return false
	}
	d.blockSize = n
	return true
}

// TotalBlocks implements BlockReader.
func (d *FileDevice) TotalBlocks() uint64 {
	avail := d.size - d.offset
	if avail <= 0 {
		return 0
	}
	return uint64(avail) / uint64(d.blockSize)
}

// DetectAPFSOffset scans the first 64 KiB of path for the NXSB magic at the
// customary GPT partition boundaries, returning the byte offset at which an
// embedded APFS container begins. It's a convenience for callers handling
// DMG-wrapped images that don't already know the offset.
func DetectAPFSOffset(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 65536)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	buf = buf[:n]

	magic := []byte{0x4E, 0x58, 0x53, 0x42} // "NXSB" little-endian
	candidates := []int64{0, 20480, 32768, 65536}
	for _, off := range candidates {
		magicOff := off + 32
		if magicOff+4 > int64(len(buf)) {
			continue
		}
		if string(buf[magicOff:magicOff+4]) == string(magic) {
			return off, nil
		}
	}
	return 0, fmt.Errorf("no APFS container magic found in %s", path)
}
