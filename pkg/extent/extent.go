// Package extent resolves a (inode, logical block) pair to the physical
// block backing it, through a per-inode single-entry cache that keeps
// repeated sequential reads of the same file from re-walking the catalog.
package extent

import (
	"sync"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/btree"
	"github.com/coreblocks/apfscore/pkg/device"
	"github.com/coreblocks/apfscore/pkg/omap"
)

// Extent is a decoded file-extent record: the logical byte address it
// starts at, the physical block it starts at (zero means a hole), and its
// byte length (always a positive multiple of the block size).
type Extent struct {
	LogicalAddr  uint64
	PhysBlockNum uint64
	Len          uint64
}

// covers reports whether the extent backs the byte at logicalAddr.
func (e Extent) covers(logicalAddr uint64) bool {
	return logicalAddr >= e.LogicalAddr && logicalAddr < e.LogicalAddr+e.Len
}

// Inode is the minimal per-file state the resolver needs: the catalog
// object id its file-extent records are keyed under, and a lock-guarded
// single-entry extent cache. Every inode the VFS collaborator hands back to
// this core owns one of these.
type Inode struct {
	// ExtentOid is the object id file-extent records for this inode are
	// filed under (ordinarily the inode's own id, except for clones).
	ExtentOid uint64

	mu    sync.Mutex
	cache Extent
	valid bool
}

// Resolver answers (inode, iblock) -> Extent queries against one mounted
// volume's catalog, resolving the catalog's internal-node child oids
// through the volume object map.
type Resolver struct {
	Reader      device.BlockReader
	VolOmapRoot apfstypes.Paddr
	CatalogRoot apfstypes.Paddr
	BlockSize   uint32
}

// Resolve returns the extent covering logical block iblock of inode,
// consulting and, on a miss, populating the inode's cache.
func (r *Resolver) Resolve(inode *Inode, iblock uint64) (Extent, error) {
	logicalAddr := iblock * uint64(r.BlockSize)

	inode.mu.Lock()
	if inode.valid && inode.cache.covers(logicalAddr) {
		e := inode.cache
		inode.mu.Unlock()
		return e, nil
	}
	inode.mu.Unlock()

	e, err := r.lookup(inode.ExtentOid, logicalAddr)
	if err != nil {
		return Extent{}, err
	}

	inode.mu.Lock()
	inode.cache = e
	inode.valid = true
	inode.mu.Unlock()

	return e, nil
}

func (r *Resolver) lookup(extentOid uint64, logicalAddr uint64) (Extent, error) {
	resolveChild := func(oid uint64) (apfstypes.Paddr, error) {
		return omap.Lookup(r.Reader, r.VolOmapRoot, apfstypes.OidT(oid), omap.LatestXid)
	}
	mode := btree.CatalogFileExtentMode(resolveChild)
	queryKey := btree.EncodeFileExtentKey(extentOid, logicalAddr)

	cur, err := btree.Lookup(r.Reader, r.CatalogRoot, mode, queryKey)
	if err != nil {
		return Extent{}, err
	}

	key, err := btree.DecodeFileExtentKey(cur.Key)
	if err != nil {
		return Extent{}, err
	}
	val, err := btree.DecodeFileExtentValue(cur.Val)
	if err != nil {
		return Extent{}, err
	}

	length := val.Len()
	if length == 0 || length%uint64(r.BlockSize) != 0 {
		return Extent{}, apfserr.Corruptf("file-extent", "extent length %d is not a positive multiple of the block size", length)
	}

	return Extent{LogicalAddr: key.LogicalAddr, PhysBlockNum: val.PhysBlockNum, Len: length}, nil
}
