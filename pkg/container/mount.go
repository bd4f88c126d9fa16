// Package container implements the read-only boot sequence: validating a
// container superblock, selecting and validating a volume, and loading the
// object maps and catalog root needed to answer the core's two queries.
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/btree"
	"github.com/coreblocks/apfscore/pkg/checksum"
	"github.com/coreblocks/apfscore/pkg/device"
	"github.com/coreblocks/apfscore/pkg/omap"
	"github.com/coreblocks/apfscore/pkg/options"
)

// Mount is a fully validated, read-only binding to one volume: the
// container and volume superblocks, the resolved object-map and catalog
// root addresses, and the parsed mount options. Every field is settled once
// by Open and never changes afterward, which is what lets every
// later lookup run lock-free.
type Mount struct {
	Reader  device.BlockReader
	Options options.Options

	Nx  apfstypes.NxSuperblockT
	Vol apfstypes.ApfsSuperblockT

	ContainerOmapRoot apfstypes.Paddr
	VolumeOmapRoot    apfstypes.Paddr
	CatalogRoot       apfstypes.Paddr
}

// Open runs the boot sequence against r using the given mount option
// string. Each step validates the previous one's output before proceeding;
// there's no acquired resource for a failed step to release beyond the
// reader itself, which the caller owns and closes regardless of outcome.
func Open(r device.BlockReader, rawOptions string) (*Mount, error) {
	nx, err := readContainerSuperblock(r)
	if err != nil {
		return nil, err
	}

	opts, err := options.Parse(rawOptions)
	if err != nil {
		return nil, err
	}

	m := &Mount{Reader: r, Options: opts, Nx: nx}

	if opts.VolumeSlot >= apfstypes.NxMaxFileSystems {
		return nil, apfserr.New(apfserr.InvalidOption, fmt.Sprintf("vol=%d", opts.VolumeSlot), "volume slot out of range")
	}
	fsOid := nx.NxFsOid[opts.VolumeSlot]
	if fsOid == apfstypes.OidInvalid {
		return nil, apfserr.New(apfserr.InvalidOption, fmt.Sprintf("vol=%d", opts.VolumeSlot), "volume slot is unused")
	}

	containerOmapRoot, err := OmapTreeRoot(r, apfstypes.Paddr(nx.NxOmapOid))
	if err != nil {
		return nil, err
	}
	m.ContainerOmapRoot = containerOmapRoot

	volAddr, err := omap.Lookup(r, containerOmapRoot, fsOid, omap.LatestXid)
	if err != nil {
		return nil, err
	}

	vol, err := ReadVolumeSuperblock(r, volAddr)
	if err != nil {
		return nil, err
	}
	m.Vol = vol

	volOmapRoot, err := OmapTreeRoot(r, apfstypes.Paddr(vol.ApfsOmapOid))
	if err != nil {
		return nil, err
	}
	m.VolumeOmapRoot = volOmapRoot

	catalogAddr, err := omap.Lookup(r, volOmapRoot, vol.ApfsRootTreeOid, omap.LatestXid)
	if err != nil {
		return nil, err
	}
	if _, err := btree.Load(r, catalogAddr); err != nil {
		return nil, err
	}
	m.CatalogRoot = catalogAddr

	return m, nil
}

// readContainerSuperblock implements step 2 of the boot sequence: read
// block 0 at the reader's current (conservative default) block size, then
// re-read at the block size the superblock itself declares before trusting
// anything else in it.
func readContainerSuperblock(r device.BlockReader) (apfstypes.NxSuperblockT, error) {
	raw, err := r.ReadBlock(0)
	if err != nil {
		return apfstypes.NxSuperblockT{}, apfserr.Wrap(apfserr.Io, "block 0", "read container superblock", err)
	}
	if len(raw) < 44 {
		return apfstypes.NxSuperblockT{}, apfserr.Corruptf("block 0", "block too short for a container superblock")
	}
	declaredSize := binary.LittleEndian.Uint32(raw[36:40])
	if declaredSize != uint32(len(raw)) {
		if !r.SetBlockSize(declaredSize) {
			return apfstypes.NxSuperblockT{}, apfserr.New(apfserr.InvalidOption, fmt.Sprintf("block_size=%d", declaredSize), "device rejected the container's declared block size")
		}
		raw, err = r.ReadBlock(0)
		if err != nil {
			return apfstypes.NxSuperblockT{}, apfserr.Wrap(apfserr.Io, "block 0", "re-read container superblock", err)
		}
	}

	return decodeNxSuperblock(raw)
}

func decodeNxSuperblock(raw []byte) (apfstypes.NxSuperblockT, error) {
	stored := binary.LittleEndian.Uint64(raw[0:8])
	if !checksum.Verify(raw, stored) {
		return apfstypes.NxSuperblockT{}, apfserr.Corruptf("block 0", "container superblock checksum mismatch")
	}

	var nx apfstypes.NxSuperblockT
	nx.NxO.Oid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[8:16]))
	nx.NxO.Xid = apfstypes.XidT(binary.LittleEndian.Uint64(raw[16:24]))
	nx.NxO.Type = binary.LittleEndian.Uint32(raw[24:28])
	nx.NxO.Subtype = binary.LittleEndian.Uint32(raw[28:32])
	nx.NxMagic = binary.LittleEndian.Uint32(raw[32:36])
	nx.NxBlockSize = binary.LittleEndian.Uint32(raw[36:40])
	nx.NxBlockCount = binary.LittleEndian.Uint64(raw[40:48])
	nx.NxOmapOid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[48:56]))

	fsOidStart := 56
	for i := 0; i < apfstypes.NxMaxFileSystems; i++ {
		off := fsOidStart + i*8
		if off+8 > len(raw) {
			return apfstypes.NxSuperblockT{}, apfserr.Corruptf("block 0", "block too short for the full file-system oid table")
		}
		nx.NxFsOid[i] = apfstypes.OidT(binary.LittleEndian.Uint64(raw[off : off+8]))
	}

	if nx.NxMagic != apfstypes.NxMagic {
		return apfstypes.NxSuperblockT{}, apfserr.Corruptf("block 0", "bad container magic %#x", nx.NxMagic)
	}
	if nx.NxBlockSize < apfstypes.MinBlockSize || nx.NxBlockSize > apfstypes.MaxBlockSize || nx.NxBlockSize&(nx.NxBlockSize-1) != 0 {
		return apfstypes.NxSuperblockT{}, apfserr.Corruptf("block 0", "implausible block size %d", nx.NxBlockSize)
	}
	return nx, nil
}

func ReadVolumeSuperblock(r device.BlockReader, addr apfstypes.Paddr) (apfstypes.ApfsSuperblockT, error) {
	raw, err := r.ReadBlock(addr)
	if err != nil {
		return apfstypes.ApfsSuperblockT{}, apfserr.Wrap(apfserr.Io, fmt.Sprintf("block %d", addr), "read volume superblock", err)
	}
	stored := binary.LittleEndian.Uint64(raw[0:8])
	if !checksum.Verify(raw, stored) {
		return apfstypes.ApfsSuperblockT{}, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "volume superblock checksum mismatch")
	}

	var v apfstypes.ApfsSuperblockT
	v.ApfsO.Oid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[8:16]))
	v.ApfsO.Xid = apfstypes.XidT(binary.LittleEndian.Uint64(raw[16:24]))
	v.ApfsO.Type = binary.LittleEndian.Uint32(raw[24:28])
	v.ApfsO.Subtype = binary.LittleEndian.Uint32(raw[28:32])
	v.ApfsMagic = binary.LittleEndian.Uint32(raw[32:36])
	v.ApfsFsFlags = binary.LittleEndian.Uint64(raw[36:44])
	v.ApfsOmapOid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[44:52]))
	v.ApfsRootTreeOid = apfstypes.OidT(binary.LittleEndian.Uint64(raw[52:60]))
	v.ApfsNumFiles = binary.LittleEndian.Uint64(raw[60:68])
	v.ApfsNumDirectories = binary.LittleEndian.Uint64(raw[68:76])
	v.ApfsNumSymlinks = binary.LittleEndian.Uint64(raw[76:84])
	v.ApfsNumOtherFsobjects = binary.LittleEndian.Uint64(raw[84:92])
	v.ApfsFsAllocCount = binary.LittleEndian.Uint64(raw[92:100])
	copy(v.ApfsVolUuid[:], raw[100:116])
	copy(v.ApfsVolname[:], raw[116:116+apfstypes.ApfsVolnameLen])

	if v.ApfsMagic != apfstypes.ApfsMagic {
		return apfstypes.ApfsSuperblockT{}, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "bad volume magic %#x", v.ApfsMagic)
	}
	return v, nil
}

// OmapTreeRoot loads the OmapPhysT object at addr and returns the physical
// address of its B-tree's root node. Both the container's and a volume's
// object map are themselves physical objects addressed directly by block
// number, and their root nodes are addressed the same way.
func OmapTreeRoot(r device.BlockReader, addr apfstypes.Paddr) (apfstypes.Paddr, error) {
	raw, err := r.ReadBlock(addr)
	if err != nil {
		return 0, apfserr.Wrap(apfserr.Io, fmt.Sprintf("block %d", addr), "read object map", err)
	}
	stored := binary.LittleEndian.Uint64(raw[0:8])
	if !checksum.Verify(raw, stored) {
		return 0, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "object map checksum mismatch")
	}
	treeOid := binary.LittleEndian.Uint64(raw[36:44])
	return apfstypes.Paddr(treeOid), nil
}
