package schema

import "fmt"

// Scale is the number of decimal places used by a scaled integer.
// Example: Scale=2 means the integer value is scaled by 1e2.
type Scale int32

// DefaultScale is the money scale used when configuration does not set one.
const DefaultScale Scale = 2

// Price is a scaled integer. The scale is defined by configuration.
type Price int64

// Cash is a scaled integer. The scale is defined by configuration.
type Cash int64

// PnL is a scaled integer. The scale is defined by configuration.
type PnL int64

// Fee is a scaled integer. The scale is defined by configuration.
type Fee int64

// Quantity is a signed instrument count. Positive is long, negative is short.
type Quantity int64

const maxInt64 = int64(^uint64(0) >> 1)

// AppendScaled renders a scaled integer as a decimal string without floats.
func AppendScaled(buf []byte, value int64, scale Scale) []byte {
	if scale <= 0 {
		return appendInt(buf, value)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := appendUint(tmp[:0], u)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= int(scale) {
		buf = append(buf, '0', '.')
		for i := 0; i < int(scale)-len(digits); i++ {
			buf = append(buf, '0')
		}
		return append(buf, digits...)
	}

	idx := len(digits) - int(scale)
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	return append(buf, digits[idx:]...)
}

// FormatScaled renders a scaled integer as a decimal string.
func FormatScaled(value int64, scale Scale) string {
	return string(AppendScaled(nil, value, scale))
}

// ParseScaled parses a decimal string into an integer scaled to the target
// scale. Extra fractional digits are truncated.
func ParseScaled(src string, scale Scale) (int64, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("empty decimal")
	}
	neg := false
	i := 0
	if src[0] == '-' {
		neg = true
		i++
	}
	if i == len(src) {
		return 0, fmt.Errorf("invalid decimal: %q", src)
	}
	var value int64
	fracDigits := Scale(0)
	seenDot := false
	seenDigit := false
	for ; i < len(src); i++ {
		c := src[i]
		if c == '.' {
			if seenDot {
				return 0, fmt.Errorf("invalid decimal: %q", src)
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid decimal: %q", src)
		}
		seenDigit = true
		if seenDot {
			if fracDigits >= scale {
				continue
			}
			fracDigits++
		}
		digit := int64(c - '0')
		if value > (maxInt64-digit)/10 {
			return 0, fmt.Errorf("decimal overflow: %q", src)
		}
		value = value*10 + digit
	}
	if !seenDigit {
		return 0, fmt.Errorf("invalid decimal: %q", src)
	}
	for fracDigits < scale {
		if value > maxInt64/10 {
			return 0, fmt.Errorf("decimal overflow: %q", src)
		}
		value *= 10
		fracDigits++
	}
	if neg {
		value = -value
	}
	return value, nil
}

func appendInt(buf []byte, v int64) []byte {
	if v < 0 {
		buf = append(buf, '-')
		return appendUint(buf, uint64(^v)+1)
	}
	return appendUint(buf, uint64(v))
}

func appendUint(buf []byte, u uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	return append(buf, tmp[i:]...)
}
