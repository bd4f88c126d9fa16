// Package omap specializes the generic B-tree engine to the one query an
// object map answers: given a root node and an object id, what physical
// block holds the current version of that object.
package omap

import (
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/btree"
	"github.com/coreblocks/apfscore/pkg/device"
)

// LatestXid is a transaction id higher than any a real volume can carry,
// used to query for "the current version" of an object rather than the
// version as of some specific, older transaction.
const LatestXid = apfstypes.XidT(^uint64(0))

// Lookup resolves oid to the physical block of its current object version,
// as of xid (pass LatestXid for "whatever is newest").
func Lookup(r device.BlockReader, omapRoot apfstypes.Paddr, oid apfstypes.OidT, xid apfstypes.XidT) (apfstypes.Paddr, error) {
	cur, err := btree.Lookup(r, omapRoot, btree.OmapMode(), btree.EncodeOmapKey(oid, xid))
	if err != nil {
		return 0, err
	}
	val, err := btree.DecodeOmapValue(cur.Val)
	if err != nil {
		return 0, err
	}
	if !val.OvPaddr.Valid() {
		return 0, apfserr.Corruptf(fmt.Sprintf("oid %d", oid), "object map entry has invalid block address %d", val.OvPaddr)
	}
	return val.OvPaddr, nil
}
