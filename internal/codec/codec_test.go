package codec

import "testing"

func TestUint64RoundTrips(t *testing.T) {
	buf := make([]byte, 16)
	PutUint64(buf, 4, 0xdeadbeefcafebabe)
	if got := GetUint64(buf, 4); got != 0xdeadbeefcafebabe {
		t.Fatalf("GetUint64 = %x, want %x", got, uint64(0xdeadbeefcafebabe))
	}
}
