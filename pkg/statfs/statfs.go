// Package statfs computes the core's used-block accounting and the
// aggregate filesystem-statistics result reported at the VFS boundary.
package statfs

import (
	"encoding/binary"

	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/container"
	"github.com/coreblocks/apfscore/pkg/omap"
)

// Stat is the aggregate filesystem-statistics result.
type Stat struct {
	BlockSize   uint32
	TotalBlocks uint64
	FreeBlocks  uint64
	AvailBlocks uint64
	Files       uint64
	NameMax     uint32
	Fsid        uint64
	Magic       uint32
}

// NameMax is the longest file name this core's catalog ordering supports.
const NameMax = 255

// UsedBlocks sums fs_alloc_count across every populated file-system slot in
// the container, by looking each slot's volume id up through the container
// object map and reading the volume superblock it resolves to. A container
// can hold up to apfstypes.NxMaxFileSystems volumes even though this core
// only ever mounts one of them; used-block accounting still has to cover
// every volume sharing the container's free space, not just the mounted one.
func UsedBlocks(m *container.Mount) (uint64, error) {
	var used uint64
	for _, fsOid := range m.Nx.NxFsOid {
		if fsOid == apfstypes.OidInvalid {
			continue
		}
		addr, err := omap.Lookup(m.Reader, m.ContainerOmapRoot, fsOid, omap.LatestXid)
		if err != nil {
			return 0, err
		}
		vol, err := container.ReadVolumeSuperblock(m.Reader, addr)
		if err != nil {
			return 0, err
		}
		used += vol.ApfsFsAllocCount
	}
	return used, nil
}

// Compute builds the full Stat for m's mounted volume.
func Compute(m *container.Mount) (Stat, error) {
	used, err := UsedBlocks(m)
	if err != nil {
		return Stat{}, err
	}

	total := m.Nx.NxBlockCount
	free := uint64(0)
	if total > used {
		free = total - used
	}

	files := m.Vol.ApfsNumFiles + m.Vol.ApfsNumDirectories + m.Vol.ApfsNumSymlinks + m.Vol.ApfsNumOtherFsobjects

	return Stat{
		BlockSize:   m.Nx.NxBlockSize,
		TotalBlocks: total,
		FreeBlocks:  free,
		AvailBlocks: free,
		Files:       files,
		NameMax:     NameMax,
		Fsid:        fsid(m.Vol.ApfsVolUuid),
		Magic:       apfstypes.ApfsMagic,
	}, nil
}

// fsid derives a 64-bit filesystem identifier from a volume UUID by XORing
// its two halves together.
func fsid(uuid apfstypes.UUID) uint64 {
	lo := binary.LittleEndian.Uint64(uuid[0:8])
	hi := binary.LittleEndian.Uint64(uuid[8:16])
	return lo ^ hi
}
