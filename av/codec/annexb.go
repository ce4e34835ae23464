package codec

// NAL unit types of interest in low-latency payloads.
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// SplitAnnexB splits an Annex-B byte stream into NAL units. Start codes
// (00 00 01 or 00 00 00 01) are removed; data before the first start code
// is ignored.
func SplitAnnexB(stream []byte) [][]byte {
	var units [][]byte
	start := -1
	i := 0
	for i+2 < len(stream) {
		if stream[i] == 0 && stream[i+1] == 0 && stream[i+2] == 1 {
			if start >= 0 {
				end := i
				// A four-byte start code leaves a zero on the previous unit.
				for end > start && stream[end-1] == 0 {
					end--
				}
				units = append(units, stream[start:end])
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start >= 0 && start < len(stream) {
		units = append(units, stream[start:])
	}
	return units
}

// NALType returns the type of a NAL unit without start code.
func NALType(unit []byte) int {
	if len(unit) == 0 {
		return -1
	}
	return int(unit[0] & 0x1f)
}

// NALTypes returns the type of every NAL unit in an Annex-B stream.
func NALTypes(stream []byte) []int {
	units := SplitAnnexB(stream)
	types := make([]int, 0, len(units))
	for _, unit := range units {
		types = append(types, NALType(unit))
	}
	return types
}

// HasStartCode reports whether payload begins with an Annex-B start code.
func HasStartCode(payload []byte) bool {
	if len(payload) >= 3 && payload[0] == 0 && payload[1] == 0 && payload[2] == 1 {
		return true
	}
	return len(payload) >= 4 && payload[0] == 0 && payload[1] == 0 && payload[2] == 0 && payload[3] == 1
}
