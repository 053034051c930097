package value

const upperHex = "0123456789ABCDEF"

// HexPrefix marks a bytea value in COPY text format.
const HexPrefix = `\x`

// AppendHex appends two uppercase hex digits per byte of src to dst.
func AppendHex(dst, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, upperHex[b>>4], upperHex[b&0x0f])
	}
	return dst
}
