/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rng provides uniform random integers for playlist shuffling,
// backed by kernel entropy with a pseudo-random fallback.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// Source yields uniform 32-bit integers. The zero value is not usable;
// use New. When the read fails, Uint32 falls back to math/rand so
// shuffling keeps working even when kernel entropy is unavailable.
type Source struct {
	read func(p []byte) (int, error)
}

// New returns a Source backed by crypto/rand.
func New() *Source {
	return &Source{read: crand.Read}
}

// NewSeeded returns a deterministic Source for tests.
func NewSeeded(seed uint64) *Source {
	r := mrand.New(mrand.NewPCG(seed, seed))
	return &Source{read: func(p []byte) (int, error) {
		for i := range p {
			p[i] = byte(r.Uint32())
		}
		return len(p), nil
	}}
}

// Uint32 returns a uniform random 32-bit integer.
func (s *Source) Uint32() uint32 {
	var buf [4]byte
	if _, err := s.read(buf[:]); err != nil {
		return mrand.Uint32()
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// Shuffle permutes n elements with the Durstenfeld variant of
// Fisher-Yates. No-op for n <= 1.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}
	for i := n - 1; i > 0; i-- {
		j := int(s.Uint32() % uint32(i+1))
		swap(i, j)
	}
}
