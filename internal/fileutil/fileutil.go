package fileutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// MD5Reader returns the lowercase hex MD5 digest of everything readable from r.
// The archive store identifies file content by MD5, so Siphon does too.
func MD5Reader(r io.Reader) (string, error) {
	hasher := md5.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// MD5File returns the lowercase hex MD5 digest of the file at path.
func MD5File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest, err := MD5Reader(file)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, nil
}
