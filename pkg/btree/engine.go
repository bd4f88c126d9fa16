package btree

import (
	"fmt"

	"github.com/coreblocks/apfscore/pkg/apfserr"
	"github.com/coreblocks/apfscore/pkg/apfstypes"
	"github.com/coreblocks/apfscore/pkg/device"
)

// Cursor is the result of a successful Lookup: the matching record, and the
// leaf node it came from (kept reachable so callers can inspect neighboring
// entries without a second descent, though nothing in this package does).
type Cursor struct {
	Leaf *Node
	Key  []byte
	Val  []byte
}

// Lookup descends from the node at rootAddr to the leaf entry that answers
// queryKey under mode, verifying every node's checksum as it's loaded. It
// returns apfserr.NotFound when the descent completes without mode.Accept
// agreeing that any leaf entry answers the query.
func Lookup(r device.BlockReader, rootAddr apfstypes.Paddr, mode Mode, queryKey []byte) (*Cursor, error) {
	addr := rootAddr
	for depth := 0; ; depth++ {
		if depth > maxLevel {
			return nil, apfserr.Corruptf(fmt.Sprintf("block %d", rootAddr), "btree descent exceeded sanity bound")
		}

		node, err := Load(r, addr)
		if err != nil {
			return nil, err
		}

		idx, err := floor(node, mode, queryKey)
		if err != nil {
			return nil, err
		}
		if idx < 0 {
			return nil, apfserr.New(apfserr.NotFound, fmt.Sprintf("block %d", rootAddr), "query key precedes every entry in the tree")
		}

		key, val, err := node.Entry(idx, mode)
		if err != nil {
			return nil, err
		}

		if node.IsLeaf() {
			if next := idx + 1; next < node.NumRecords() {
				nextKey, _, err := node.Entry(next, mode)
				if err != nil {
					return nil, err
				}
				if mode.Compare(key, nextKey, true) == 0 {
					return nil, apfserr.Corruptf(fmt.Sprintf("block %d", addr), "duplicate keys at entries %d and %d", idx, next)
				}
			}
			if !mode.Accept(queryKey, key, val) {
				return nil, apfserr.New(apfserr.NotFound, fmt.Sprintf("block %d", rootAddr), "no matching record")
			}
			return &Cursor{Leaf: node, Key: key, Val: val}, nil
		}

		addr, err = mode.ChildAddr(val)
		if err != nil {
			return nil, err
		}
	}
}

// floor returns the index of the greatest entry in node whose key does not
// exceed queryKey under mode.Compare, or -1 if every entry exceeds it.
// Entries within a node are assumed to be stored in ascending key order, an
// invariant every node on a well-formed volume upholds; floor performs an
// ordinary binary search that relies on that order and does not check it, so
// a node whose keys are out of order can yield the wrong index.
func floor(node *Node, mode Mode, queryKey []byte) (int, error) {
	n := node.NumRecords()
	lo, hi := 0, n // search over [lo, hi): first index whose key > queryKey
	for lo < hi {
		mid := (lo + hi) / 2
		key, _, err := node.Entry(mid, mode)
		if err != nil {
			return 0, err
		}
		if mode.Compare(queryKey, key, node.IsLeaf()) < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo - 1, nil
}
