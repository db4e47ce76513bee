// Package conv formats integers without fmt or strconv, so the driver
// packages stay small on targets where those pull in too much.
package conv

const hexDigits = "0123456789abcdef"

// AppendUint appends the decimal form of u to dst.
func AppendUint(dst []byte, u uint64) []byte {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	return append(dst, buf[i:]...)
}

// AppendInt appends the decimal form of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		return AppendUint(append(dst, '-'), uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendHex32 appends v as 0x followed by eight lowercase digits.
func AppendHex32(dst []byte, v uint32) []byte {
	dst = append(dst, '0', 'x')
	for shift := 28; shift >= 0; shift -= 4 {
		dst = append(dst, hexDigits[v>>uint(shift)&0xF])
	}
	return dst
}

// Itoa is AppendInt into a fresh string.
func Itoa(n int) string {
	var buf [20]byte
	return string(AppendInt(buf[:0], int64(n)))
}
