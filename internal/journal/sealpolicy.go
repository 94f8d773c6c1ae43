package journal

import "time"

// SealPolicy decides when the Controller must seal the current Open chunk
// and start a new one. Grounded on the teacher's RotationPolicy split
// (size- and age-triggered rotation composed together), but evaluated
// against a chunk's accumulated byte size and wall age instead of a log
// segment's.
type SealPolicy interface {
	// ShouldSeal reports whether the chunk with the given accumulated byte
	// size and age since it was opened should be sealed before accepting
	// more updates.
	ShouldSeal(size int64, age time.Duration) bool
}

// SizeSealPolicy seals once a chunk's encoded payload reaches maxBytes.
type SizeSealPolicy struct {
	MaxBytes int64
}

func (p SizeSealPolicy) ShouldSeal(size int64, _ time.Duration) bool {
	return size >= p.MaxBytes
}

// AgeSealPolicy seals once a chunk has been open for maxAge, regardless of
// size, so a quiet chunk doesn't stay Open (and unsealed, and undurable)
// indefinitely.
type AgeSealPolicy struct {
	MaxAge time.Duration
}

func (p AgeSealPolicy) ShouldSeal(_ int64, age time.Duration) bool {
	return age >= p.MaxAge
}

// CompositeSealPolicy seals as soon as any constituent policy says to.
type CompositeSealPolicy struct {
	Policies []SealPolicy
}

func (p CompositeSealPolicy) ShouldSeal(size int64, age time.Duration) bool {
	for _, policy := range p.Policies {
		if policy.ShouldSeal(size, age) {
			return true
		}
	}
	return false
}
