// Package conv has allocation-free formatting helpers for fixed buffers used
// on the interrupt path.
package conv

// AppendInt appends the base-10 form of n to dst.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendUint appends the base-10 form of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var b [20]byte
	i := len(b)
	for {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return append(dst, b[i:]...)
}

// AppendTrunc appends s to dst without letting len(dst) exceed max.
func AppendTrunc(dst []byte, s string, max int) []byte {
	room := max - len(dst)
	if room <= 0 {
		return dst
	}
	if len(s) > room {
		s = s[:room]
	}
	return append(dst, s...)
}
