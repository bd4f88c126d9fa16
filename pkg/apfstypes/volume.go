package apfstypes

// ApfsMagic is the value of ApfsSuperblockT.Magic: the on-disk bytes "APSB"
// read as a little-endian uint32 (0x42535041).
const ApfsMagic uint32 = 'A' | 'P'<<8 | 'S'<<16 | 'B'<<24

// ApfsVolnameLen is the length, in bytes, of the ApfsVolname field.
const ApfsVolnameLen = 256

// ApfsFsUnencrypted indicates the volume isn't encrypted. It's the only
// volume flag this read-only core inspects.
const ApfsFsUnencrypted uint64 = 0x00000001

// ApfsSuperblockT is a volume superblock. A container's fs_oid array points,
// through the container object map, at one of these per volume.
type ApfsSuperblockT struct {
	// The object's header.
	ApfsO ObjPhysT
	// Verifies this is really a volume superblock; must equal ApfsMagic.
	ApfsMagic uint32
	// Volume feature flags; only ApfsFsUnencrypted is consulted here.
	ApfsFsFlags uint64
	// The physical object identifier of the volume's own object map.
	ApfsOmapOid OidT
	// The virtual object identifier of the root file-system B-tree (the catalog).
	ApfsRootTreeOid OidT
	// The number of regular files on this volume.
	ApfsNumFiles uint64
	// The number of directories on this volume.
	ApfsNumDirectories uint64
	// The number of symbolic links on this volume.
	ApfsNumSymlinks uint64
	// The number of file-system objects that aren't files, directories, or symlinks.
	ApfsNumOtherFsobjects uint64
	// The number of blocks currently allocated to this volume's file system.
	ApfsFsAllocCount uint64
	// The volume's universally unique identifier.
	ApfsVolUuid UUID
	// The volume's name, as a NUL-terminated UTF-8 string.
	ApfsVolname [ApfsVolnameLen]byte
}

// IsUnencrypted reports whether the volume's metadata and file content are
// stored without encryption.
func (sb *ApfsSuperblockT) IsUnencrypted() bool {
	return sb.ApfsFsFlags&ApfsFsUnencrypted != 0
}

// Name returns the volume name as a Go string, stopping at the first NUL.
func (sb *ApfsSuperblockT) Name() string {
	n := 0
	for n < len(sb.ApfsVolname) && sb.ApfsVolname[n] != 0 {
		n++
	}
	return string(sb.ApfsVolname[:n])
}
