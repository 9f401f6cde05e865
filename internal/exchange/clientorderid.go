package exchange

import "time"

// clientOrderIDModulus is 2^31 - 1, the range client order ids are reduced
// into.
const clientOrderIDModulus = (1 << 31) - 1

// allocateClientOrderID derives id = micros_since_epoch mod (2^31 - 1),
// retrying with a fresh read on collision. inUse reports whether an id is
// currently held by the tracker.
func allocateClientOrderID(inUse func(uint32) bool) uint32 {
	for {
		micros := time.Now().UnixMicro()
		id := uint32(micros % clientOrderIDModulus)
		if id == 0 {
			// Reserve 0 as "unset" so a zero-value Order is never
			// mistaken for an allocated id.
			continue
		}
		if !inUse(id) {
			return id
		}
	}
}
