package mp4

import (
	"encoding/binary"
	"strings"
)

// compatibleBrands lists ftyp brands handled by this extractor.
var compatibleBrands = map[string]bool{
	"isom": true, "iso2": true, "iso3": true, "iso4": true, "iso5": true, "iso6": true, "iso8": true,
	"avc1": true, "hvc1": true, "hev1": true, "av01": true,
	"mp41": true, "mp42": true, "mp4v": true, "M4A ": true, "M4B ": true, "M4P ": true, "M4V ": true, "M4VH": true, "M4VP": true,
	"f4v ": true, "kddi": true, "M4A\x00": true, "qt  ": true, "MSNV": true, "dby1": true,
	"dash": true, "msdh": true, "msix": true, "cmfc": true,
	"heic": true, "heix": true, "mif1": true, "msf1": true,
}

var heicBrands = map[string]bool{"heic": true, "heix": true, "mif1": true}

func isCompatibleBrand(brand string) bool {
	return compatibleBrands[brand] || strings.HasPrefix(brand, "3g")
}

// sniff walks the top-level boxes present in probe. A file is accepted when
// its ftyp carries a known brand, or when it starts directly with a movie
// box.
func sniff(probe []byte) bool {
	pos := 0
	for pos+8 <= len(probe) {
		size := uint64(binary.BigEndian.Uint32(probe[pos:]))
		typ := string(probe[pos+4 : pos+8])
		header := uint64(8)
		if size == 1 {
			if pos+16 > len(probe) {
				return false
			}
			size = binary.BigEndian.Uint64(probe[pos+8:])
			header = 16
		}
		if size != 0 && size < header {
			return false
		}

		switch typ {
		case "ftyp":
			if size < 16 || uint64(pos)+size > uint64(len(probe)) {
				return false
			}
			box := probe[pos+8 : uint64(pos)+size]
			if isCompatibleBrand(string(box[0:4])) {
				return true
			}
			for i := 8; i+4 <= len(box); i += 4 {
				if isCompatibleBrand(string(box[i : i+4])) {
					return true
				}
			}
			return false
		case "moov", "moof":
			return true
		case "free", "skip", "wide", "pdin", "uuid":
		default:
			return false
		}
		if size == 0 {
			return false
		}
		pos += int(size)
	}
	return false
}
