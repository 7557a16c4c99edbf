package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Reader wraps r and hashes everything read through it.
type Reader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewReader returns a hashing reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

func (c *Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.Write(p[:n])
		c.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of the bytes read so far.
func (c *Reader) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}

// Size returns the number of bytes read so far.
func (c *Reader) Size() int64 {
	return c.n
}
