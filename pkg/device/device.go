// Package device defines the block-reading collaborator the core relies on
// and a couple of concrete backings (a raw/DMG file, and an in-memory device
// used to synthesize test images). The core never caches blocks itself; it
// always goes through a BlockReader, which owns that policy.
package device

import "github.com/coreblocks/apfscore/pkg/apfstypes"

// BlockReader is the host-provided collaborator the core reads every
// persistent object through. Implementations own whatever block-cache
// policy the host wants; the core only ever asks for whole blocks.
type BlockReader interface {
	// ReadBlock returns the bytes of the block at bno, sized BlockSize().
	ReadBlock(bno apfstypes.Paddr) ([]byte, error)

	// BlockSize returns the block size currently in effect.
	BlockSize() uint32

	// SetBlockSize reconfigures the reader for a newly discovered block
	// size, as read from the container superblock. It reports whether the
	// requested size is one the reader supports.
	SetBlockSize(n uint32) bool

	// TotalBlocks returns the number of blocks available on the device.
	TotalBlocks() uint64
}
