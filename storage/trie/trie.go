// Package trie persists economy state in a merkle patricia trie so every
// committed operation yields a verifiable state root.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"tokenflow/storage"
)

// Trie is a working view over one committed root. Mutations stay in memory
// until Commit; Copy forks a view that can be thrown away. Keys are expected
// to be keccak256 hashes. A Trie must not be shared between goroutines.
type Trie struct {
	nodes     *triedb.Database
	inner     *gethtrie.Trie
	committed common.Hash
}

// NewTrie opens root over store. A nil root opens the empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	committed := gethtypes.EmptyRootHash
	if len(root) > 0 {
		committed = common.BytesToHash(root)
	}
	t := &Trie{nodes: store.TrieDB(), committed: committed}
	if err := t.reopen(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) reopen() error {
	inner, err := gethtrie.New(gethtrie.TrieID(t.committed), t.nodes)
	if err != nil {
		return fmt.Errorf("trie: open root %s: %w", t.committed.Hex(), err)
	}
	t.inner = inner
	return nil
}

// Get returns nil for a missing key.
func (t *Trie) Get(key []byte) ([]byte, error) { return t.inner.Get(key) }

func (t *Trie) Update(key, value []byte) error { return t.inner.Update(key, value) }

func (t *Trie) Delete(key []byte) error { return t.inner.Delete(key) }

// Hash is the root including uncommitted writes.
func (t *Trie) Hash() common.Hash { return t.inner.Hash() }

// Root is the last committed root.
func (t *Trie) Root() common.Hash { return t.committed }

func (t *Trie) Copy() *Trie {
	return &Trie{nodes: t.nodes, inner: t.inner.Copy(), committed: t.committed}
}

// Commit flushes pending writes to disk as block height and returns the new
// root. The view is reopened on the new root afterwards.
func (t *Trie) Commit(height uint64) (common.Hash, error) {
	next, dirty := t.inner.Commit(false)
	if dirty != nil {
		set := trienode.NewMergedNodeSet()
		if err := set.Merge(dirty); err != nil {
			return common.Hash{}, fmt.Errorf("trie: merge nodes: %w", err)
		}
		if err := t.nodes.Update(next, t.committed, height, set, nil); err != nil {
			return common.Hash{}, fmt.Errorf("trie: update height %d: %w", height, err)
		}
		if err := t.nodes.Commit(next, false); err != nil {
			return common.Hash{}, fmt.Errorf("trie: commit height %d: %w", height, err)
		}
	}
	t.committed = next
	if err := t.reopen(); err != nil {
		return common.Hash{}, err
	}
	return next, nil
}
