package protocol

import "bytes"

// Delimiter separates payloads on the byte stream. The codec guarantees
// it never occurs inside an encoded payload.
const Delimiter = '\n'

// ReadFrames - splits newly received bytes into complete payloads,
// prepending the carry-over left by the previous read. A non-empty
// trailing fragment is an incomplete frame and becomes the new carry.
func ReadFrames(carry, chunk []byte) ([][]byte, []byte) {
	buf := append(carry, chunk...) //nolint: gocritic // carry is owned by the caller's read loop

	parts := bytes.Split(buf, []byte{Delimiter})

	// the part after the last delimiter is either empty or incomplete
	newCarry := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	frames := make([][]byte, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		frames = append(frames, part)
	}

	if len(newCarry) == 0 {
		return frames, nil
	}

	// copy so the next append cannot clobber frames still being decoded
	return frames, append([]byte(nil), newCarry...)
}
