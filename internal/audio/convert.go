package audio

import (
	"encoding/binary"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// convert returns audio as 16-bit PCM at rate and channels. Rates are
// converted with linear interpolation; mono is duplicated to stereo and
// stereo is averaged down to mono.
func convert(a tts.Audio, rate, channels int) []byte {
	if a.SampleRate == rate && a.Channels == channels {
		return a.Data
	}

	in := toFrames(a)
	if a.SampleRate != rate && a.SampleRate > 0 {
		in = resample(in, a.SampleRate, rate)
	}
	return fromFrames(in, channels)
}

// toFrames decodes PCM into mono samples.
func toFrames(a tts.Audio) []int16 {
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}
	n := len(a.Data) / (2 * ch)
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		var sum int32
		for c := 0; c < ch; c++ {
			off := (i*ch + c) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(a.Data[off:]))) //nolint:gosec
		}
		out[i] = int16(sum / int32(ch)) //nolint:gosec
	}
	return out
}

func resample(in []int16, from, to int) []int16 {
	if len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}

func fromFrames(frames []int16, channels int) []byte {
	out := make([]byte, len(frames)*2*channels)
	for i, s := range frames {
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(out[(i*channels+c)*2:], uint16(s)) //nolint:gosec
		}
	}
	return out
}
