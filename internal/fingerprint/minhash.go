package fingerprint

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"
)

// MinHash layout: 128 permutations split into 16 LSH bands of 8 rows.
// Two documents sharing at least one band bucket become comparison
// candidates; acceptance still requires the estimated Jaccard to clear
// the configured content similarity threshold.
const (
	SignatureSize = 128
	NumBands      = 16
	rowsPerBand   = SignatureSize / NumBands

	shingleSize = 3

	// Splitmix64 increment; gives each permutation an independent
	// deterministic mixing constant.
	permutationSeed = 0x9e3779b97f4a7c15
)

// Signature is a fixed-size MinHash signature over shingled description
// tokens.
type Signature [SignatureSize]uint64

// BucketKey identifies one LSH bucket: the band index plus the hashed
// band rows.
type BucketKey struct {
	Band int
	Key  uint64
}

// NewSignature builds the MinHash signature for a text. Returns false
// when the text is too short to shingle.
func NewSignature(tokens []string) (Signature, bool) {
	var sig Signature
	if len(tokens) < shingleSize {
		return sig, false
	}

	for i := range sig {
		sig[i] = ^uint64(0)
	}

	for i := 0; i+shingleSize <= len(tokens); i++ {
		shingle := strings.Join(tokens[i:i+shingleSize], " ")
		base := hashShingle(shingle)
		for p := 0; p < SignatureSize; p++ {
			h := mix64(base + uint64(p+1)*permutationSeed)
			if h < sig[p] {
				sig[p] = h
			}
		}
	}
	return sig, true
}

// EstimateJaccard returns the fraction of agreeing permutations, an
// unbiased estimate of the shingle-set Jaccard similarity.
func EstimateJaccard(a, b Signature) float64 {
	matches := 0
	for i := 0; i < SignatureSize; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(SignatureSize)
}

// Buckets derives the LSH bucket key for every band of the signature.
func Buckets(sig Signature) [NumBands]BucketKey {
	var keys [NumBands]BucketKey
	var buf [rowsPerBand * 8]byte
	for band := 0; band < NumBands; band++ {
		for row := 0; row < rowsPerBand; row++ {
			binary.BigEndian.PutUint64(buf[row*8:], sig[band*rowsPerBand+row])
		}
		hasher := fnv.New64a()
		_, _ = hasher.Write(buf[:])
		keys[band] = BucketKey{Band: band, Key: hasher.Sum64()}
	}
	return keys
}

// EncodeSignature serializes a signature for bytea storage.
func EncodeSignature(sig Signature) []byte {
	out := make([]byte, SignatureSize*8)
	for i, v := range sig {
		binary.BigEndian.PutUint64(out[i*8:], v)
	}
	return out
}

// DecodeSignature is the inverse of EncodeSignature.
func DecodeSignature(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != SignatureSize*8 {
		return sig, fmt.Errorf("minhash signature must be %d bytes, got %d", SignatureSize*8, len(raw))
	}
	for i := range sig {
		sig[i] = binary.BigEndian.Uint64(raw[i*8:])
	}
	return sig, nil
}

func hashShingle(shingle string) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(shingle))
	return hasher.Sum64()
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
