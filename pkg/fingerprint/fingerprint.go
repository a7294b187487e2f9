// Package fingerprint computes content identities for library files. The
// fingerprint is the SHA-256 of the first 512KiB of the file with the total
// file size appended, which survives renames and moves while staying cheap
// on multi-hundred-megabyte archives.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// headSize is how much of the file participates in the hash.
const headSize = 512 * 1024

// File computes the fingerprint of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.WithStack(err)
	}

	return Reader(f, info.Size())
}

// Reader computes the fingerprint of size bytes of content readable from r.
// Only the first 512KiB is hashed.
func Reader(r io.Reader, size int64) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, io.LimitReader(r, headSize)); err != nil {
		return "", errors.WithStack(err)
	}
	return fmt.Sprintf("%s%x", hex.EncodeToString(h.Sum(nil)), size), nil
}
