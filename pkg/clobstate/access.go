package clobstate

import (
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
)

// StateAccess is the abstraction the matching engine programs against: a
// single read/write surface over 32-byte keys and opaque byte values,
// regardless of whether the backing authority is a supplied proof stream or
// a live host-side tree.
type StateAccess interface {
	ReadValue(key [32]byte) ([]byte, error)
	WriteValue(key [32]byte, value []byte) error
}

// ProofState consumes a caller-supplied, strictly ordered proof queue: every
// read or write pops exactly one proof, checks its key matches, verifies (or
// applies) it against the evolving root, and records the key in touch order
// for the audit digest (§4.E, §4.H).
type ProofState struct {
	Root        [32]byte
	proofs      []*merkle.Proof
	TouchedKeys [][32]byte
}

func NewProofState(root [32]byte, proofs []*merkle.Proof) *ProofState {
	return &ProofState{Root: root, proofs: proofs}
}

// RemainingProofs reports how many supplied proofs were not consumed; the
// driver requires this to be zero after a batch completes (§4.H).
func (s *ProofState) RemainingProofs() int {
	return len(s.proofs)
}

func (s *ProofState) nextProof() (*merkle.Proof, error) {
	if len(s.proofs) == 0 {
		return nil, clobtypes.StateErrorf("missing proof")
	}
	p := s.proofs[0]
	s.proofs = s.proofs[1:]
	return p, nil
}

func (s *ProofState) ReadValue(key [32]byte) ([]byte, error) {
	proof, err := s.nextProof()
	if err != nil {
		return nil, err
	}
	if proof.Key != key {
		return nil, clobtypes.StateErrorf("proof key mismatch")
	}
	if _, err := merkle.VerifyProof(s.Root, proof); err != nil {
		return nil, clobtypes.StateErrorf("%v", err)
	}
	s.TouchedKeys = append(s.TouchedKeys, key)
	if !proof.Present {
		return nil, nil
	}
	return proof.Value, nil
}

func (s *ProofState) WriteValue(key [32]byte, value []byte) error {
	proof, err := s.nextProof()
	if err != nil {
		return err
	}
	if proof.Key != key {
		return clobtypes.StateErrorf("proof key mismatch")
	}
	newRoot, err := merkle.ApplyProof(s.Root, proof, value)
	if err != nil {
		return clobtypes.StateErrorf("%v", err)
	}
	s.Root = newRoot
	s.TouchedKeys = append(s.TouchedKeys, key)
	return nil
}

// RecordingState wraps a live host-side materialized SparseMerkleTree: it
// generates each access's proof on demand rather than consuming a supplied
// queue, applying the identical mutation rules. This is what the host
// driver uses both to build GuestBundle.proofs for a zkVM run and to keep
// its own queryable view of state current between batches.
type RecordingState struct {
	Root   [32]byte
	Proofs []*merkle.Proof
	Tree   *merkle.SparseMerkleTree
}

func NewRecordingState(tree *merkle.SparseMerkleTree) *RecordingState {
	return &RecordingState{Root: tree.Root(), Tree: tree}
}

func (s *RecordingState) ReadValue(key [32]byte) ([]byte, error) {
	proof := s.Tree.Prove(key)
	s.Proofs = append(s.Proofs, proof)
	if _, err := merkle.VerifyProof(s.Root, proof); err != nil {
		return nil, clobtypes.StateErrorf("%v", err)
	}
	if !proof.Present {
		return nil, nil
	}
	return proof.Value, nil
}

func (s *RecordingState) WriteValue(key [32]byte, value []byte) error {
	proof := s.Tree.Prove(key)
	s.Proofs = append(s.Proofs, proof)
	s.Tree.Update(key, value)
	s.Root = s.Tree.Root()
	return nil
}
