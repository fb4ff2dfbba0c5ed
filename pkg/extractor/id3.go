package extractor

// ID3v2HeaderSize is the size of an ID3v2 tag header.
const ID3v2HeaderSize = 10

// ID3v2TagSize returns the full size of the ID3v2 tag that starts at b,
// including header and footer, or 0 when b does not start with a tag header.
func ID3v2TagSize(b []byte) int {
	if len(b) < ID3v2HeaderSize || b[0] != 'I' || b[1] != 'D' || b[2] != '3' {
		return 0
	}
	if b[3] == 0xFF || b[4] == 0xFF {
		return 0
	}
	size := 0
	for _, c := range b[6:10] {
		if c&0x80 != 0 {
			return 0
		}
		size = size<<7 | int(c)
	}
	size += ID3v2HeaderSize
	if b[5]&0x10 != 0 {
		size += ID3v2HeaderSize
	}
	return size
}
