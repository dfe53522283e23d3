package component

import "github.com/avnera-audio/dspfw/buffer"

// reservationBytes concatenates a (possibly wrapped) reservation into one
// contiguous slice. Used by the small in-scope components (mixer, mux,
// volume) that interpret sample values directly, and by the pass-through
// stub, which copies the bytes without interpreting them.
func reservationBytes(res buffer.Reservation) []byte {
	if len(res.Second) == 0 {
		return res.First
	}
	out := make([]byte, 0, res.Len())
	out = append(out, res.First...)
	out = append(out, res.Second...)
	return out
}

// writeReservation copies src into a (possibly wrapped) reservation.
func writeReservation(res buffer.Reservation, src []byte) {
	n := copy(res.First, src)
	if n < len(src) {
		copy(res.Second, src[n:])
	}
}

func decodeS16LE(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
	}
	return out
}

func encodeS16LE(samples []int16, buf []byte) {
	for i, s := range samples {
		u := uint16(s)
		buf[2*i] = byte(u)
		buf[2*i+1] = byte(u >> 8)
	}
}

func clipToInt16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
