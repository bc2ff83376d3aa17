package tree

import (
	"sync"

	"github.com/cosmos/iavl"
	dbm "github.com/tendermint/tm-db"
)

// Bucket is one section of the state. Commit writes its dirty entries
// into the working tree; after SaveVersion every bucket is repointed at
// the fresh immutable view.
type Bucket interface {
	Commit(db *iavl.MutableTree, version int64) error
	SetImmutableTree(immutableTree *iavl.ImmutableTree)
}

// MTree is the versioned merkle tree the engine state lives in. One
// version is saved per committed block height.
type MTree interface {
	GetLastImmutable() *iavl.ImmutableTree
	GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error)
	Version() int64
	Hash() []byte
	AvailableVersions() []int
	Commit(buckets ...Bucket) ([]byte, int64, error)
	DeleteVersionIfExists(version int64) error
	GlobalLock()
	GlobalUnlock()
}

// NewMutableTree opens the tree at the given height. Height 0 opens the
// latest saved version. A non-zero height rolls newer versions back,
// which is how the engine recovers from a partial commit.
func NewMutableTree(height uint64, db dbm.DB, cacheSize int, initialVersion uint64) (MTree, error) {
	t, err := iavl.NewMutableTreeWithOpts(db, cacheSize, &iavl.Options{InitialVersion: initialVersion})
	if err != nil {
		return nil, err
	}

	if height == 0 {
		if _, err := t.LoadVersion(0); err != nil {
			return nil, err
		}
	} else {
		if _, err := t.LoadVersionForOverwriting(int64(height)); err != nil {
			return nil, err
		}
	}

	return &mutableTree{tree: t}, nil
}

// NewImmutableTree opens a read-only view of the state at the given
// height.
func NewImmutableTree(height uint64, db dbm.DB) (*iavl.ImmutableTree, error) {
	t, err := iavl.NewMutableTree(db, 1024)
	if err != nil {
		return nil, err
	}

	if _, err := t.LazyLoadVersion(int64(height)); err != nil {
		return nil, err
	}

	return t.GetImmutable(int64(height))
}

type mutableTree struct {
	tree *iavl.MutableTree
	lock sync.RWMutex
	sync.Mutex
}

// GlobalLock serializes commits against readers that span several calls.
func (t *mutableTree) GlobalLock() {
	t.Lock()
}

func (t *mutableTree) GlobalUnlock() {
	t.Unlock()
}

// Commit writes every bucket's dirty entries, saves the next version and
// repoints the buckets at it.
func (t *mutableTree) Commit(buckets ...Bucket) ([]byte, int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	version := t.tree.Version() + 1
	for _, bucket := range buckets {
		if err := bucket.Commit(t.tree, version); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err := t.tree.SaveVersion()
	if err != nil {
		return nil, 0, err
	}

	last, err := t.tree.GetImmutable(version)
	if err != nil {
		return nil, 0, err
	}

	for _, bucket := range buckets {
		bucket.SetImmutableTree(last)
	}

	return hash, version, nil
}

func (t *mutableTree) GetLastImmutable() *iavl.ImmutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	// a fresh tree has no saved versions yet, expose the working tree so
	// genesis import can read through it
	if t.tree.Version() == 0 {
		return t.tree.ImmutableTree
	}

	last, err := t.tree.GetImmutable(t.tree.Version())
	if err != nil {
		panic(err)
	}

	return last
}

func (t *mutableTree) GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.GetImmutable(version)
}

func (t *mutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Version()
}

func (t *mutableTree) Hash() []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Hash()
}

func (t *mutableTree) AvailableVersions() []int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.AvailableVersions()
}

func (t *mutableTree) DeleteVersionIfExists(version int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.tree.VersionExists(version) {
		return nil
	}

	return t.tree.DeleteVersion(version)
}
