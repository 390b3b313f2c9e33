package piper

import "encoding/binary"

// resample converts 16-bit little-endian mono PCM between sample rates by
// linear interpolation.
func resample(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 || len(pcm) < 4 {
		return pcm
	}

	in := len(pcm) / 2
	out := int(int64(in) * int64(to) / int64(from))
	dst := make([]byte, out*2)

	sample := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	step := float64(from) / float64(to)
	for i := 0; i < out; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)

		v := sample(j)
		if j+1 < in {
			v += (sample(j+1) - v) * frac
		}
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(v)))
	}

	return dst
}
