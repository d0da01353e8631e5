// CLAUDE:SUMMARY ID generators: UUIDv7 for export ids, short base-36 NanoID for trace ids, prefixed and deterministic sequence variants.
// Package idgen provides pluggable ID generation.
//
// Components take a Generator in their Config, so tests swap in a
// deterministic Sequence while production keeps UUIDv7.
package idgen

import (
	"crypto/rand"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NanoID returns a Generator of random base-36 IDs of the given length.
// Bytes at or above 252 are redrawn so every character is equally likely.
func NanoID(length int) Generator {
	const limit = 256 - 256%len(base36)
	return func() string {
		out := make([]byte, 0, length)
		buf := make([]byte, length+8)
		for len(out) < length {
			if _, err := rand.Read(buf); err != nil {
				panic("idgen: crypto/rand failed: " + err.Error())
			}
			for _, b := range buf {
				if int(b) < limit && len(out) < length {
					out = append(out, base36[int(b)%len(base36)])
				}
			}
		}
		return string(out)
	}
}

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs: time-ordered, so
// journal ids sort by creation.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen ("exp_" for exports).
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns prefix1, prefix2, ... Safe for concurrent use.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return prefix + strconv.FormatInt(n.Add(1), 10)
	}
}
