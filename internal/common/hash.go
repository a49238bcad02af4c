// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// HashingWriter forwards writes to the destination and keeps a
// sha256 of everything written so the data only has to go out once
type HashingWriter struct {
	destination io.Writer
	hash        hash.Hash
	written     int64
}

func NewHashingWriter(destination io.Writer) *HashingWriter {
	return &HashingWriter{destination: destination, hash: sha256.New()}
}

func (w *HashingWriter) Write(p []byte) (int, error) {
	n, err := w.destination.Write(p)
	w.hash.Write(p[:n])
	w.written += int64(n)
	return n, err
}

// Sum returns the hex encoded sha256 of the bytes written so far
func (w *HashingWriter) Sum() string {
	return hex.EncodeToString(w.hash.Sum(nil))
}

// Written returns the number of bytes written so far
func (w *HashingWriter) Written() int64 {
	return w.written
}
