package merkle

import "testing"

func key(b byte) [32]byte {
	var k [32]byte
	k[0] = b
	return k
}

func TestEmptyTreeRootMatchesEmptyHash(t *testing.T) {
	tr := NewSparseMerkleTree()
	root := tr.Root()
	proof := tr.Prove(key(0x01))
	if proof.Present {
		t.Fatal("expected absent proof on empty tree")
	}
	if _, err := VerifyProof(root, proof); err != nil {
		t.Fatalf("VerifyProof on empty tree: %v", err)
	}
}

func TestUpdateAndProveRoundTrip(t *testing.T) {
	tr := NewSparseMerkleTree()
	k := key(0x42)
	tr.Update(k, []byte("hello"))
	root := tr.Root()

	proof := tr.Prove(k)
	if !proof.Present {
		t.Fatal("expected present proof after update")
	}
	if string(proof.Value) != "hello" {
		t.Fatalf("proof value = %q, want hello", proof.Value)
	}
	if _, err := VerifyProof(root, proof); err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
}

func TestApplyProofUpdatesRoot(t *testing.T) {
	tr := NewSparseMerkleTree()
	k := key(0x07)
	rootBefore := tr.Root()
	proof := tr.Prove(k)

	newRoot, err := ApplyProof(rootBefore, proof, []byte("v1"))
	if err != nil {
		t.Fatalf("ApplyProof: %v", err)
	}

	tr.Update(k, []byte("v1"))
	if got := tr.Root(); got != newRoot {
		t.Fatalf("materialized root = %x, want %x", got, newRoot)
	}
}

func TestVerifyProofRejectsWrongRoot(t *testing.T) {
	tr := NewSparseMerkleTree()
	k := key(0x09)
	tr.Update(k, []byte("x"))
	proof := tr.Prove(k)

	var wrongRoot [32]byte
	wrongRoot[0] = 0xff
	if _, err := VerifyProof(wrongRoot, proof); err == nil {
		t.Fatal("expected root mismatch error")
	}
}

func TestApplyProofPresentToAbsent(t *testing.T) {
	tr := NewSparseMerkleTree()
	k := key(0x11)
	tr.Update(k, []byte("v"))
	root := tr.Root()
	proof := tr.Prove(k)

	newRoot, err := ApplyProof(root, proof, nil)
	if err != nil {
		t.Fatalf("ApplyProof to absent: %v", err)
	}
	tr.Update(k, nil)
	if got := tr.Root(); got != newRoot {
		t.Fatalf("materialized root after delete = %x, want %x", got, newRoot)
	}
}

func TestGetBitMSBFirst(t *testing.T) {
	var k [32]byte
	k[0] = 0b1000_0000
	if GetBit(k, 0) != 1 {
		t.Fatal("bit 0 should be the high bit of byte 0")
	}
	if GetBit(k, 1) != 0 {
		t.Fatal("bit 1 should be the next bit of byte 0")
	}
}
