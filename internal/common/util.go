package common

// WipeByteArray overwrites b with zeros. Used for passwords once a request
// has been sent. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
