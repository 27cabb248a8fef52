package mathx

// RoundDiv returns a/b rounded half up, for unsigned operands. b == 0 yields 0.
func RoundDiv[T ~uint | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
