package wire

// BuildMessage returns M = varint(len(payload)) ‖ payload, the framed
// message that both signature shapes (user-sign and session-sign) are
// computed over.
func BuildMessage(payload []byte) []byte {
	prefix := EncodeVarint(uint64(len(payload)))
	m := make([]byte, 0, len(prefix)+len(payload))
	m = append(m, prefix...)
	m = append(m, payload...)
	return m
}

// AppendSignature forms the wire frame M ‖ sig sent to the venue.
func AppendSignature(m, sig []byte) []byte {
	frame := make([]byte, 0, len(m)+len(sig))
	frame = append(frame, m...)
	frame = append(frame, sig...)
	return frame
}

// DecodeReceipt reads a response body of the form varint(len(R)) ‖ R and
// returns R. Bytes beyond the declared length are ignored.
func DecodeReceipt(body []byte) ([]byte, error) {
	length, n, err := DecodeVarint(body, 0)
	if err != nil {
		return nil, err
	}
	start := n
	end := start + int(length)
	if end > len(body) {
		return nil, &MalformedFrameError{Reason: "declared payload length exceeds body"}
	}
	return body[start:end], nil
}
