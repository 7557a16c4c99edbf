package checksum

import (
	"io"
	"strings"
	"testing"
)

func TestSum(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestReaderMatchesSum(t *testing.T) {
	r := NewReader(strings.NewReader("hello world"))
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if r.Sum() != Sum(data) {
		t.Errorf("reader sum = %q, want %q", r.Sum(), Sum(data))
	}
	if r.Size() != int64(len(data)) {
		t.Errorf("size = %d, want %d", r.Size(), len(data))
	}
}

func TestETagQuoted(t *testing.T) {
	if got := ETag("abc"); got != `"abc"` {
		t.Errorf("ETag = %s", got)
	}
}
