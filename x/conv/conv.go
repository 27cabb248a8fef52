// Package conv formats integers and fixed-point values into caller-owned
// buffers. It avoids fmt and strconv so MCU builds stay small.
package conv

// AppendUint appends the base-10 form of n.
func AppendUint(b []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(b, tmp[i:]...)
}

// AppendInt appends the base-10 form of n.
func AppendInt(b []byte, n int64) []byte {
	if n < 0 {
		b = append(b, '-')
		return AppendUint(b, uint64(-n))
	}
	return AppendUint(b, uint64(n))
}

// AppendCenti appends hundredths as a number with exactly two decimals
// (2500 => "25.00", -5 => "-0.05").
func AppendCenti(b []byte, v int32) []byte {
	u := int64(v)
	if u < 0 {
		b = append(b, '-')
		u = -u
	}
	b = AppendUint(b, uint64(u/100))
	frac := u % 100
	return append(b, '.', byte('0'+frac/10), byte('0'+frac%10))
}

// Itoa is AppendInt into a new string.
func Itoa(n int) string {
	var buf [20]byte
	return string(AppendInt(buf[:0], int64(n)))
}

// Centi is AppendCenti into a new string.
func Centi(v int32) string {
	var buf [16]byte
	return string(AppendCenti(buf[:0], v))
}
