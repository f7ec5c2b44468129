package resource

// Token is an integer reference to a handle stored in a Table.
// Token 0 is reserved and always invalid.
type Token uint64

// Dropper is optionally implemented by handle payloads that need cleanup.
// Drop is called exactly once, by the release that takes ownership.
type Dropper interface {
	Drop()
}

func makeToken(index, gen uint32) Token {
	return Token(uint64(gen)<<32 | uint64(index+1))
}

func (t Token) split() (index, gen uint32, ok bool) {
	low := uint32(t)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(t >> 32), true
}
