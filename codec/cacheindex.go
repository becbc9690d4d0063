package codec

// Cache-index wire markers. These are the standard MessagePack fixext
// marker bytes, repurposed: instead of marker + a distinct type byte + N
// payload bytes, every byte after the marker (including what msgpack calls
// the "type" byte) is raw little-endian index data. fixext8 is the one
// exception: its first payload byte is forced to zero and the remaining 8
// carry the full uint64.
const (
	markerFixExt1 byte = 0xd4
	markerFixExt2 byte = 0xd5
	markerFixExt4 byte = 0xd6
	markerFixExt8 byte = 0xd7
)

// encodeCacheIndex picks the narrowest marker that fits id and returns the
// marker followed by its raw little-endian payload bytes, ready to write
// verbatim after the preceding instruction's fixed fields.
func encodeCacheIndex(id uint64) []byte {
	b := make([]byte, 8)
	putUint64LE(b, id)

	switch {
	case b[2] == 0 && b[3] == 0 && b[4] == 0 && b[5] == 0 && b[6] == 0 && b[7] == 0:
		return append([]byte{markerFixExt1}, b[0], b[1])
	case b[3] == 0 && b[4] == 0 && b[5] == 0 && b[6] == 0 && b[7] == 0:
		return append([]byte{markerFixExt2}, b[0], b[1], b[2])
	case b[5] == 0 && b[6] == 0 && b[7] == 0:
		return append([]byte{markerFixExt4}, b[0], b[1], b[2], b[3], b[4])
	default:
		return append([]byte{markerFixExt8, 0}, b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
	}
}

// decodeCacheIndex inverts encodeCacheIndex given the marker byte and the
// payload bytes that followed it (already stripped of the marker itself).
func decodeCacheIndex(marker byte, payload []byte) (uint64, error) {
	b := make([]byte, 8)
	switch marker {
	case markerFixExt1:
		copy(b[0:2], payload)
	case markerFixExt2:
		copy(b[0:3], payload)
	case markerFixExt4:
		copy(b[0:5], payload)
	case markerFixExt8:
		// payload[0] is the forced-zero byte; payload[1:9] is the index.
		copy(b[0:8], payload[1:9])
	default:
		return 0, errUnexpectedMarkerByte(marker)
	}
	return uint64LE(b), nil
}

// cacheIndexPayloadLen returns how many bytes follow a given fixext marker,
// or -1 if marker isn't one of ours.
func cacheIndexPayloadLen(marker byte) int {
	switch marker {
	case markerFixExt1:
		return 2
	case markerFixExt2:
		return 3
	case markerFixExt4:
		return 5
	case markerFixExt8:
		return 9
	default:
		return -1
	}
}

func putUint64LE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

func uint64LE(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
