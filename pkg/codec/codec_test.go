package codec

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.PutByte(0x07)
	w.PutU32(0xdeadbeef)
	w.PutU64(0x0102030405060708)
	w.PutI32(-1)
	w.PutBytes([]byte("hello"))
	w.PutFixed(make([]byte, 20))

	r := NewReader(w.Bytes())
	if got := r.GetByte(); got != 0x07 {
		t.Fatalf("byte = %x, want 0x07", got)
	}
	if got := r.GetU32(); got != 0xdeadbeef {
		t.Fatalf("u32 = %x, want 0xdeadbeef", got)
	}
	if got := r.GetU64(); got != 0x0102030405060708 {
		t.Fatalf("u64 = %x, want 0x0102030405060708", got)
	}
	if got := r.GetI32(); got != -1 {
		t.Fatalf("i32 = %d, want -1", got)
	}
	if got := string(r.GetBytes()); got != "hello" {
		t.Fatalf("bytes = %q, want hello", got)
	}
	_ = r.GetFixed(20)
	if err := r.Finish(); err != nil {
		t.Fatalf("Finish() = %v, want nil", err)
	}
}

func TestReaderBoundsChecked(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_ = r.GetU64()
	if r.Err() == nil {
		t.Fatal("expected bounds error reading past end of buffer")
	}
}

func TestTrailingBytesIsError(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	_ = r.GetByte()
	if err := r.Finish(); err == nil {
		t.Fatal("expected trailing-bytes error")
	}
}
