package extent

import "github.com/coreblocks/apfscore/pkg/apfserr"

// Mapping is the result of mapping one logical block of a file: either a
// physical block number, or a hole (no physical block backs this region),
// plus how many bytes of the caller's request that answer actually covers.
type Mapping struct {
	Hole        bool
	PhysBlock   uint64
	MappedBytes uint64
}

// GetBlock resolves the extent covering iblock and reports the physical
// block (or hole) and how many of the caller's requested maxSize bytes the
// mapping actually covers, clipped to the extent's remaining length.
// wantWrite is always rejected: this core never maps a block for writing.
func (r *Resolver) GetBlock(inode *Inode, iblock uint64, maxSize uint64, wantWrite bool) (Mapping, error) {
	if wantWrite {
		return Mapping{}, apfserr.New(apfserr.ReadOnly, "block-map", "write access requested on a read-only core")
	}

	e, err := r.Resolve(inode, iblock)
	if err != nil {
		return Mapping{}, err
	}

	extentStartBlock := e.LogicalAddr / uint64(r.BlockSize)
	blkOff := iblock - extentStartBlock

	remaining := e.Len - blkOff*uint64(r.BlockSize)
	mapped := maxSize
	if remaining < mapped {
		mapped = remaining
	}

	if e.PhysBlockNum == 0 {
		return Mapping{Hole: true, MappedBytes: mapped}, nil
	}
	return Mapping{PhysBlock: e.PhysBlockNum + blkOff, MappedBytes: mapped}, nil
}
