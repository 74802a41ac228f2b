package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// domainKey is a 32-byte key for BLAKE3 keyed hashing. The same bytes
// hashed in different domains produce unrelated digests, so a file whose
// contents equal some hashed string never collides with it.
type domainKey [32]byte

// Domain keys are the ASCII domain name zero-padded to 32 bytes. Changing
// one invalidates every cache entry addressed in that domain.
var (
	fileDomainKey = domainKey{
		's', 'p', 'r', 'i', 't', 'e', 's', 'l', 'a', 'b', '.', 'f', 'i', 'l', 'e',
	}
	stringDomainKey = domainKey{
		's', 'p', 'r', 'i', 't', 'e', 's', 'l', 'a', 'b', '.', 's', 't', 'r', 'i', 'n', 'g',
	}
	entryDomainKey = domainKey{
		's', 'p', 'r', 'i', 't', 'e', 's', 'l', 'a', 'b', '.', 'e', 'n', 't', 'r', 'y',
	}
)

func newHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes long.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("cache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func keyedHash(key domainKey, data []byte) string {
	hasher := newHasher(key)
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashString returns the hex digest of s in the string domain.
func HashString(s string) string {
	return keyedHash(stringDomainKey, []byte(s))
}

// HashFile streams the file at path through the file-domain hasher and
// returns the hex digest of its contents.
func HashFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := newHasher(fileDomainKey)
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
