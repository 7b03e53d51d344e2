package strgen

import (
	"strconv"

	"github.com/pkg/errors"
)

// Format ID 的文本编码方式
type Format int

const (
	FormatBase10 Format = iota + 1
	FormatBase16
	FormatBase64
)

const (
	alphabet16 = "0123456789ABCDEF"
	// alphabet64 不是标准 Base64，字母表按 ASCII 排序，编码结果的字典序与数值序一致，且 URL 安全
	alphabet64 = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

	base16Bits  = 4
	base16Width = 16
	base64Bits  = 6
	base64Width = 11
)

var (
	index16 = newIndex(alphabet16)
	index64 = newIndex(alphabet64)
)

// newIndex 字符到数值的反查表，不在字母表中的字符为 0xFF
func newIndex(alphabet string) [256]byte {
	var index [256]byte
	for i := range index {
		index[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		index[alphabet[i]] = byte(i)
	}
	return index
}

// ParseFormat 解析 outputType，空字符串使用默认的 base64
func ParseFormat(outputType string) (Format, error) {
	switch outputType {
	case "base10":
		return FormatBase10, nil
	case "base16":
		return FormatBase16, nil
	case "base64", "":
		return FormatBase64, nil
	default:
		return 0, errors.Wrapf(ErrInvalidOutputType, "unknown output type %q", outputType)
	}
}

func (f Format) String() string {
	switch f {
	case FormatBase10:
		return "base10"
	case FormatBase16:
		return "base16"
	case FormatBase64:
		return "base64"
	default:
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
}

// Encode 编码 ID
// base10 不补零；base16 固定16位大写；base64 固定11位，高位的 0 编码为 '-'
func (f Format) Encode(id uint64) string {
	switch f {
	case FormatBase10:
		return strconv.FormatUint(id, 10)
	case FormatBase16:
		return encodeFixed(id, alphabet16, base16Bits, base16Width)
	case FormatBase64:
		return encodeFixed(id, alphabet64, base64Bits, base64Width)
	default:
		return ""
	}
}

func encodeFixed(id uint64, alphabet string, bits uint, width int) string {
	buf := make([]byte, width)
	mask := uint64(1)<<bits - 1
	for i := width - 1; i >= 0; i-- {
		buf[i] = alphabet[id&mask]
		id >>= bits
	}
	return string(buf)
}

// Decode 是 Encode 的逆操作，只接受 Encode 能产生的规范形式
func (f Format) Decode(s string) (uint64, error) {
	switch f {
	case FormatBase10:
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || strconv.FormatUint(id, 10) != s {
			return 0, errors.Wrapf(ErrInvalidID, "not a canonical base10 id %q", s)
		}
		return id, nil
	case FormatBase16:
		return decodeFixed(s, &index16, base16Bits, base16Width)
	case FormatBase64:
		return decodeFixed(s, &index64, base64Bits, base64Width)
	default:
		return 0, errors.Wrapf(ErrInvalidOutputType, "cannot decode with %s", f)
	}
}

func decodeFixed(s string, index *[256]byte, bits uint, width int) (uint64, error) {
	if len(s) != width {
		return 0, errors.Wrapf(ErrInvalidID, "expected %d characters, got %d", width, len(s))
	}

	// 首字符只能承载 64 - (width-1)*bits 位
	leadingBits := 64 - uint(width-1)*bits

	var id uint64
	for i := 0; i < len(s); i++ {
		v := index[s[i]]
		if v == 0xFF {
			return 0, errors.Wrapf(ErrInvalidID, "invalid character %q at %d", s[i], i)
		}
		if i == 0 && uint64(v) >= 1<<leadingBits {
			return 0, errors.Wrapf(ErrInvalidID, "id %q overflows 64 bits", s)
		}
		id = id<<bits | uint64(v)
	}
	return id, nil
}
