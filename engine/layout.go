package engine

import (
	"math"
	"math/bits"

	"github.com/ufo-org/ufo-r-operators/errors"
)

// layout is the immutable geometry of one object's mapping.
type layout struct {
	headerOffset uint64 // header start within the mapping
	bodyOffset   uint64 // body start within the mapping, page aligned
	bodyBytes    uint64
	mappedBytes  uint64
	chunkElems   uint64
	chunkBytes   uint64
	chunkCount   uint64
}

func newLayout(cfg ObjectConfig, pageSize, defaultLoadBytes uint64) (layout, error) {
	if cfg.Stride == 0 {
		return layout{}, invalidObject("element size must be non-zero")
	}
	if cfg.ElementCount == 0 {
		return layout{}, invalidObject("element count must be non-zero")
	}

	hi, bodyBytes := bits.Mul64(cfg.ElementCount, cfg.Stride)
	if hi != 0 {
		return layout{}, errors.Overflow(errors.PhaseAllocate, "body size", cfg.ElementCount, cfg.Stride)
	}

	headerSpan, ok := roundUp(cfg.HeaderSize, pageSize)
	if !ok {
		return layout{}, errors.Overflow(errors.PhaseAllocate, "header size", cfg.HeaderSize, 1)
	}
	bodySpan, ok := roundUp(bodyBytes, pageSize)
	if !ok {
		return layout{}, errors.Overflow(errors.PhaseAllocate, "body size", cfg.ElementCount, cfg.Stride)
	}
	mapped, carry := bits.Add64(headerSpan, bodySpan, 0)
	if carry != 0 || mapped > math.MaxInt {
		return layout{}, errors.Overflow(errors.PhaseAllocate, "mapping size", headerSpan, bodySpan)
	}

	// Smallest element count whose byte size is a whole number of pages.
	quantum := pageSize / gcd(cfg.Stride, pageSize)

	want := cfg.MinLoadCount
	if want == 0 {
		want = max(1, defaultLoadBytes/cfg.Stride)
	}
	// A chunk never needs to be larger than the whole body.
	whole, _ := roundUp(cfg.ElementCount, quantum)
	want = min(want, whole)
	chunkElems, _ := roundUp(want, quantum)

	return layout{
		headerOffset: headerSpan - cfg.HeaderSize,
		bodyOffset:   headerSpan,
		bodyBytes:    bodyBytes,
		mappedBytes:  mapped,
		chunkElems:   chunkElems,
		chunkBytes:   chunkElems * cfg.Stride,
		chunkCount:   (cfg.ElementCount + chunkElems - 1) / chunkElems,
	}, nil
}

// chunkSpan returns the byte range of chunk idx relative to the body.
func (l layout) chunkSpan(idx uint64) (lo, hi uint64) {
	lo = idx * l.chunkBytes
	hi = min(lo+l.chunkBytes, l.bodyBytes)
	return lo, hi
}

// chunkElements returns the element range of chunk idx.
func (l layout) chunkElements(idx uint64, elementCount uint64) (start, end uint64) {
	start = idx * l.chunkElems
	end = min(start+l.chunkElems, elementCount)
	return start, end
}

func roundUp(n, to uint64) (uint64, bool) {
	if rem := n % to; rem != 0 {
		sum, carry := bits.Add64(n, to-rem, 0)
		return sum, carry == 0
	}
	return n, true
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func invalidObject(detail string) error {
	err := errors.InvalidConfig(errors.PhaseAllocate, "%s", detail)
	err.Cause = ErrInvalidConfig
	return err
}
