package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/tphakala/proctor-go/internal/errors"
)

// Container identifies the encoding of an audio blob
type Container string

const (
	ContainerWAV    Container = "wav"
	ContainerFLAC   Container = "flac"
	ContainerWebM   Container = "webm"
	ContainerOgg    Container = "ogg"
	ContainerMP4    Container = "mp4"
	ContainerRawPCM Container = "pcm_f32le"
)

const (
	maxSupportedBits    = 32
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Clip is decoded mono audio
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int // channel count of the source before mixing
	Container  Container
}

// Duration returns the clip length
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// DecodeFloat32LE reinterprets raw as little-endian IEEE 754 float32 samples
func DecodeFloat32LE(raw []byte) ([]float32, error) {
	if len(raw) == 0 {
		return nil, errors.InvalidInputf(componentName, "audio data is empty")
	}
	if len(raw)%4 != 0 {
		return nil, errors.InvalidInputf(componentName, "audio data length %d is not a multiple of 4 bytes", len(raw))
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}

// Sniff identifies the container from the leading magic bytes
func Sniff(raw []byte) Container {
	switch {
	case len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE":
		return ContainerWAV
	case len(raw) >= 4 && string(raw[0:4]) == "fLaC":
		return ContainerFLAC
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ContainerWebM
	case len(raw) >= 4 && string(raw[0:4]) == "OggS":
		return ContainerOgg
	case len(raw) >= 8 && string(raw[4:8]) == "ftyp":
		return ContainerMP4
	default:
		return ContainerRawPCM
	}
}

// DecodeAudioBlob decodes a WAV or FLAC file, or raw float32 PCM, into mono
// samples. rawSampleRate is used only for raw PCM, which carries no header.
// Compressed browser formats are rejected as invalid input.
func DecodeAudioBlob(raw []byte, rawSampleRate int) (Clip, error) {
	if len(raw) == 0 {
		return Clip{}, errors.InvalidInputf(componentName, "audio data is empty")
	}

	switch container := Sniff(raw); container {
	case ContainerWAV:
		return DecodeWAV(raw)
	case ContainerFLAC:
		return DecodeFLAC(raw)
	case ContainerRawPCM:
		samples, err := DecodeFloat32LE(raw)
		if err != nil {
			return Clip{}, err
		}
		if rawSampleRate <= 0 {
			return Clip{}, errors.InvalidInputf(componentName, "sample rate must be positive, got %d", rawSampleRate)
		}
		return Clip{Samples: samples, SampleRate: rawSampleRate, Channels: 1, Container: container}, nil
	default:
		return Clip{}, errors.Newf("unsupported audio container %s, send WAV, FLAC or float32 PCM", container).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Context("container", string(container)).
			Build()
	}
}

// DecodeWAV decodes 8, 16, 24 or 32 bit integer PCM WAV data
func DecodeWAV(raw []byte) (Clip, error) {
	decoder := wav.NewDecoder(bytes.NewReader(raw))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Clip{}, errors.InvalidInputf(componentName, "invalid WAV file format")
	}

	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return Clip{}, errors.InvalidInputf(componentName, "unsupported WAV encoding %d, only integer PCM is accepted", decoder.WavAudioFormat)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	if err := checkFormat(bitDepth, channels, int(decoder.SampleRate)); err != nil {
		return Clip{}, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Clip{}, errors.New(fmt.Errorf("reading WAV samples: %w", err)).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Build()
	}

	divisor := fullScale(bitDepth)
	interleaved := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		// 8-bit WAV is unsigned
		if bitDepth == 8 {
			s -= 128
		}
		interleaved[i] = float32(float64(s) / divisor)
	}

	return Clip{
		Samples:    MixToMono(interleaved, channels),
		SampleRate: int(decoder.SampleRate),
		Channels:   channels,
		Container:  ContainerWAV,
	}, nil
}

// DecodeFLAC decodes FLAC data
func DecodeFLAC(raw []byte) (Clip, error) {
	decoder, err := flac.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return Clip{}, errors.New(fmt.Errorf("invalid FLAC stream: %w", err)).
			Component(componentName).
			Category(errors.CategoryInvalidInput).
			Build()
	}

	bitDepth := decoder.BitsPerSample
	channels := decoder.NChannels
	if err := checkFormat(bitDepth, channels, decoder.SampleRate); err != nil {
		return Clip{}, err
	}

	bytesPerSample := bitDepth / 8
	divisor := fullScale(bitDepth)

	var interleaved []float32
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, errors.New(fmt.Errorf("decoding FLAC frame: %w", err)).
				Component(componentName).
				Category(errors.CategoryInvalidInput).
				Build()
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			interleaved = append(interleaved, float32(float64(readSample(frame[i:], bitDepth))/divisor))
		}
	}

	return Clip{
		Samples:    MixToMono(interleaved, channels),
		SampleRate: decoder.SampleRate,
		Channels:   channels,
		Container:  ContainerFLAC,
	}, nil
}

// MixToMono averages interleaved channels into one
func MixToMono(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}

	mono := make([]float32, len(interleaved)/channels)
	for i := range mono {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

func checkFormat(bitDepth, channels, sampleRate int) error {
	switch {
	case bitDepth%8 != 0 || bitDepth < 8 || bitDepth > maxSupportedBits:
		return errors.InvalidInputf(componentName, "unsupported bit depth: %d", bitDepth)
	case channels < 1 || channels > 8:
		return errors.InvalidInputf(componentName, "unsupported number of channels: %d", channels)
	case sampleRate <= 0:
		return errors.InvalidInputf(componentName, "invalid sample rate: %d", sampleRate)
	}
	return nil
}

// fullScale returns the magnitude of the most negative value at bitDepth
func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// readSample reads one signed little-endian sample
func readSample(b []byte, bitDepth int) int32 {
	switch bitDepth {
	case 8:
		return int32(int8(b[0]))
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		// sign extend from bit 23
		return v << 8 >> 8
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}
