// Package codec converts between native integers and the signed-magnitude
// decimal encoding used for operational data words: the top digit is the
// sign (0 positive, 1 negative), the remaining seven digits are the
// magnitude (0..9,999,999).
//
// The codec is a pure function pair and must not be mixed with two's
// complement arithmetic except inside the ALU step that calls it.
package codec

// MaxMagnitude is the largest magnitude a signed-magnitude word can hold.
const MaxMagnitude = 9_999_999

// Encode converts a native integer to its signed-magnitude word
// representation. If the magnitude of v exceeds MaxMagnitude, the result is
// clamped to MaxMagnitude and overflow is reported true.
func Encode(v int) (word int, overflow bool) {
	sign := 0
	mag := v

	if v < 0 {
		sign = 1
		mag = -v
	}

	if mag > MaxMagnitude {
		mag = MaxMagnitude
		overflow = true
	}

	return sign*10_000_000 + mag, overflow
}

// Decode converts a signed-magnitude word to a native integer. Only the
// bottom 8 digits are interpreted; the sign is the 8th digit (position
// 10,000,000s), the magnitude the bottom 7 digits.
func Decode(word int) int {
	sign := (word / 10_000_000) % 10
	mag := word % 10_000_000

	if sign != 0 {
		return -mag
	}

	return mag
}
