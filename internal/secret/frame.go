package secret

import "bytes"

// Frame layout constants.
const (
	// Magic marks a valid frame.
	Magic = "TOTP"

	// HeaderSize is the magic plus the length byte.
	HeaderSize = len(Magic) + 1

	// MaxLength is the largest payload the length byte can describe.
	MaxLength = 255

	// PadByte right-pads short secrets. It is the zero digit of the
	// base32 alphabet.
	PadByte = 'A'

	// Alphabet is the RFC 4648 base32 alphabet used for generated secrets.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

// encodeFrame builds the on-storage frame for payload.
func encodeFrame(payload []byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, Magic...)
	frame = append(frame, byte(len(payload)))
	return append(frame, payload...)
}

// decodeFrame extracts the payload from buf, which must hold at least
// HeaderSize+maxLen bytes. ok is false when the frame is absent.
func decodeFrame(buf []byte, maxLen int) (payload []byte, ok bool) {
	if len(buf) < HeaderSize || !bytes.Equal(buf[:len(Magic)], []byte(Magic)) {
		return nil, false
	}

	n := int(buf[len(Magic)])
	if n == 0 || n > maxLen || HeaderSize+n > len(buf) {
		return nil, false
	}

	payload = make([]byte, n)
	copy(payload, buf[HeaderSize:HeaderSize+n])
	return payload, true
}

// normalise truncates or right-pads s to length.
func normalise(s []byte, length int) []byte {
	out := bytes.Repeat([]byte{PadByte}, length)
	copy(out, s)
	return out
}
