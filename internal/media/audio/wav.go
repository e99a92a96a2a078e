// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package audio extracts the audio track of a media source and splits it
// into bounded-size chunks for downstream transcription.
//
// The interchange format throughout the package is 16-bit little-endian PCM
// in a RIFF/WAVE container. Uncompressed PCM keeps slicing exact: a chunk
// boundary is a sample index, not a guess at a compressed frame edge.
package audio

import (
	"encoding/binary"
	"fmt"
)

// MIMEType is the content type every encoded track and chunk is labeled
// with. The container written here is WAV and is labeled as such.
const MIMEType = "audio/wav"

const (
	wavHeaderSize  = 44
	pcmFormatCode  = 1 // Uncompressed PCM.
	bytesPerSample = 2 // 16-bit samples.
)

// Track is a decoded audio track. Samples are interleaved when NumChannels
// is greater than one.
type Track struct {
	SampleRate  int
	NumChannels int
	Samples     []int16
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate <= 0 || t.NumChannels <= 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SampleRate*t.NumChannels)
}

// BytesPerSecond returns the encoded data rate, used by the chunk planner to
// turn a byte cap into a duration cap.
func (t *Track) BytesPerSecond() int {
	return t.SampleRate * t.NumChannels * bytesPerSample
}

// EncodeWAV serializes the track as a RIFF/WAVE byte stream.
func EncodeWAV(t *Track) ([]byte, error) {
	if t == nil || t.SampleRate <= 0 || t.NumChannels <= 0 {
		return nil, fmt.Errorf("cannot encode track: invalid sample rate or channel count")
	}

	dataSize := len(t.Samples) * bytesPerSample
	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], pcmFormatCode)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(t.NumChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(t.BytesPerSecond()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(t.NumChannels*bytesPerSample))
	binary.LittleEndian.PutUint16(buf[34:36], bytesPerSample*8)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range t.Samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}
	return buf, nil
}

// DecodeWAV parses a RIFF/WAVE byte stream into a Track. Only uncompressed
// 16-bit PCM is accepted; that is the only shape this pipeline produces.
func DecodeWAV(data []byte) (*Track, error) {
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("wav stream too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		track    Track
		haveFmt  bool
		haveData bool
	)

	// Walk the chunk list rather than assuming a fixed layout; ffmpeg
	// emits a LIST chunk ahead of the data chunk.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			// Streamed output often carries a placeholder size in the
			// final chunk; clamp to what is actually present.
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != pcmFormatCode {
				return nil, fmt.Errorf("unsupported wav format code %d, want PCM", format)
			}
			track.NumChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			track.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			if bits := binary.LittleEndian.Uint16(data[body+14 : body+16]); bits != 16 {
				return nil, fmt.Errorf("unsupported wav bit depth %d, want 16", bits)
			}
			haveFmt = true
		case "data":
			n := size / bytesPerSample
			track.Samples = make([]int16, n)
			for i := 0; i < n; i++ {
				track.Samples[i] = int16(binary.LittleEndian.Uint16(data[body+i*2:]))
			}
			haveData = true
		}

		// Chunks are word aligned.
		off = body + size + size%2
	}

	if !haveFmt || !haveData {
		return nil, fmt.Errorf("wav stream missing fmt or data chunk")
	}
	if track.SampleRate <= 0 || track.NumChannels <= 0 {
		return nil, fmt.Errorf("wav stream declares invalid rate or channel count")
	}
	return &track, nil
}
