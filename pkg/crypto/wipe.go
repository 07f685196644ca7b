package crypto

// Wipe zeroes a secret byte buffer in place. Every buffer holding
// entropy, seed, private key, or derived cipher key bytes must be wiped
// before it goes out of scope, on error paths included.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
