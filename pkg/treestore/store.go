// Package treestore persists the authenticated state tree and the committed
// batch history to disk with pebble, and keeps a before-apply write-ahead log
// of incoming batches so a crash mid-batch can be diagnosed and replayed.
// Grounded on the teacher's pebble-backed storage layer, repurposed from
// consensus blocks/accounts to Merkle leaves and batch outputs (§4.E, §4.H,
// §10).
package treestore

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/codec"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
)

// Key prefixes, namespaced the way the teacher separates consensus and
// account keys so tree leaves, roots, and batch records never collide.
const (
	prefixLeaf  = "leaf:"
	keyRoot     = "root"
	prefixBatch = "batch:"
)

func leafKey(k [32]byte) []byte {
	return append([]byte(prefixLeaf), k[:]...)
}

func batchKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixBatch, seq))
}

// Store is the on-disk backing for one market's authenticated state plus its
// committed batch history.
type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveLeaf persists one tree leaf. A nil value removes it (the same "nil
// means absent" convention merkle.SparseMerkleTree.Update uses).
func (s *Store) SaveLeaf(key [32]byte, value []byte) error {
	if value == nil {
		if err := s.db.Delete(leafKey(key), pebble.Sync); err != nil {
			return fmt.Errorf("delete leaf: %w", err)
		}
		return nil
	}
	if err := s.db.Set(leafKey(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("save leaf: %w", err)
	}
	return nil
}

// SaveLeaves persists every entry of touched, in iteration order, as a
// single best-effort pass (the underlying writes are individually synced).
func (s *Store) SaveLeaves(touched map[[32]byte][]byte) error {
	for key, value := range touched {
		if err := s.SaveLeaf(key, value); err != nil {
			return err
		}
	}
	return nil
}

// LoadLeaf returns (nil, false) when key is absent.
func (s *Store) LoadLeaf(key [32]byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(leafKey(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load leaf: %w", err)
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// LoadTree materializes a fresh merkle.SparseMerkleTree from every persisted
// leaf, for a host rebuilding its in-memory view on startup.
func (s *Store) LoadTree() (*merkle.SparseMerkleTree, error) {
	tree := merkle.NewSparseMerkleTree()
	lower := []byte(prefixLeaf)
	upper := keyUpperBound(lower)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("iterate leaves: %w", err)
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		var key [32]byte
		copy(key[:], iter.Key()[len(prefixLeaf):])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		tree.Update(key, value)
	}
	return tree, nil
}

// SaveRoot records the current tree root, e.g. after a batch commits.
func (s *Store) SaveRoot(root [32]byte) error {
	if err := s.db.Set([]byte(keyRoot), root[:], pebble.Sync); err != nil {
		return fmt.Errorf("save root: %w", err)
	}
	return nil
}

// LoadRoot returns the all-zero root when none has been saved yet.
func (s *Store) LoadRoot() ([32]byte, error) {
	val, closer, err := s.db.Get([]byte(keyRoot))
	if err == pebble.ErrNotFound {
		return [32]byte{}, nil
	}
	if err != nil {
		return [32]byte{}, fmt.Errorf("load root: %w", err)
	}
	defer closer.Close()
	var root [32]byte
	copy(root[:], val)
	return root, nil
}

// SaveBatch persists one batch's committed public inputs under its sequence
// number, zero-padded for lexicographic iteration order.
func (s *Store) SaveBatch(public *clobtypes.PublicInputs) error {
	if err := s.db.Set(batchKey(public.BatchSeq), public.EncodedBytes(), pebble.Sync); err != nil {
		return fmt.Errorf("save batch %d: %w", public.BatchSeq, err)
	}
	return nil
}

// LoadBatch decodes the public inputs committed for seq, or (nil, false) if
// no batch with that sequence number has been saved.
func (s *Store) LoadBatch(seq uint64) (*clobtypes.PublicInputs, bool, error) {
	val, closer, err := s.db.Get(batchKey(seq))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load batch %d: %w", seq, err)
	}
	defer closer.Close()
	r := codec.NewReader(val)
	public := decodePublicInputs(r)
	if err := r.Finish(); err != nil {
		return nil, false, fmt.Errorf("decode batch %d: %w", seq, err)
	}
	return public, true, nil
}

func decodePublicInputs(r *codec.Reader) *clobtypes.PublicInputs {
	return &clobtypes.PublicInputs{
		PrevRoot:        clobtypes.HashFromBytes(r.GetFixed(32)),
		NewRoot:         clobtypes.HashFromBytes(r.GetFixed(32)),
		BatchDigest:     clobtypes.HashFromBytes(r.GetFixed(32)),
		RulesHash:       clobtypes.HashFromBytes(r.GetFixed(32)),
		DomainSeparator: clobtypes.HashFromBytes(r.GetFixed(32)),
		BatchSeq:        r.GetU64(),
		BatchTimestamp:  r.GetU64(),
		DACommitment:    clobtypes.HashFromBytes(r.GetFixed(32)),
		TradesRoot:      clobtypes.HashFromBytes(r.GetFixed(32)),
		FeesRoot:        clobtypes.HashFromBytes(r.GetFixed(32)),
	}
}

// LatestBatchSeq scans for the highest persisted batch sequence number, or
// (0, false) if none has been saved yet.
func (s *Store) LatestBatchSeq() (uint64, bool, error) {
	lower := []byte(prefixBatch)
	upper := keyUpperBound(lower)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, false, fmt.Errorf("iterate batches: %w", err)
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, false, nil
	}
	var seq uint64
	fmt.Sscanf(string(iter.Key()[len(prefixBatch):]), "%020d", &seq)
	return seq, true, nil
}

func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound
		}
	}
	return append(bound, 0xff)
}
