package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToFloat32(t *testing.T) {
	want := []float32{0, 0.5, -1, 0.25}
	data := make([]byte, 0, len(want)*4+3)
	for _, v := range want {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	// trailing partial sample
	data = append(data, 1, 2, 3)

	assert.Equal(t, want, bytesToFloat32(data))
	assert.Nil(t, bytesToFloat32([]byte{1, 2}))
}

func TestBuildFFmpegArgs(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 22050
	cfg.MaxDuration = 90 * time.Second
	d := NewDecoder(cfg)

	args := d.buildFFmpegArgs(&AudioMetadata{SampleRate: 48000})
	assert.Subset(t, args, []string{"-f", "f32le", "-ac", "1", "-ar", "22050", "-t", "90.00"})
	assert.Contains(t, args, "aresample=resampler=soxr:precision=20")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	// matching rate and no normalization means no filter chain
	args = d.buildFFmpegArgs(&AudioMetadata{SampleRate: 22050})
	assert.NotContains(t, args, "-af")

	cfg.EnableNormalization = true
	args = d.buildFFmpegArgs(nil)
	require.Contains(t, args, "-af")
	for i, a := range args {
		if a == "-af" {
			assert.Equal(t, "aresample=resampler=soxr:precision=20,loudnorm=I=-16.0:TP=-1.0:LRA=8.0", args[i+1])
		}
	}
}

func TestParseFFprobeOutput(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"audio","codec_name":"flac","sample_rate":"48000","channels":2,"duration":"12.5","bit_rate":"","codec_long_name":"FLAC"}]}`)
	meta, err := parseFFprobeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 48000, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, "flac", meta.Codec)
	assert.Equal(t, 12.5, meta.Duration)
	assert.Zero(t, meta.Bitrate)

	_, err = parseFFprobeOutput([]byte(`{"streams":[]}`))
	assert.ErrorContains(t, err, "no audio streams")

	_, err = parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video","channels":1}]}`))
	assert.Error(t, err)

	_, err = parseFFprobeOutput([]byte(`not json`))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, NewDecoder(nil).ValidateConfig())

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 0
	assert.Error(t, NewDecoder(cfg).ValidateConfig())

	cfg = DefaultDecoderConfig()
	cfg.ResampleQuality = "ultra"
	assert.Error(t, NewDecoder(cfg).ValidateConfig())
}

// wavBytes encodes 16-bit mono PCM as a WAV file
func wavBytes(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVEfmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*2))
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

func writeWAV(t *testing.T, path string, samples []int16, sampleRate int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, wavBytes(samples, sampleRate), 0o644))
}

func tone(n, sampleRate int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(16000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return samples
}

func TestDecodeFile(t *testing.T) {
	d := NewDecoder(&DecoderConfig{
		TargetSampleRate: 8000,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          30 * time.Second,
	})
	if err := d.CheckAvailability(); err != nil {
		t.Skipf("ffmpeg not installed: %v", err)
	}

	samples := tone(8000, 8000)
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, samples, 8000)

	buf, err := d.DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.SampleRate)
	assert.Len(t, buf.Samples, 8000)
	assert.InDelta(t, 1.0, buf.Duration, 1e-9)
	assert.InDelta(t, float64(samples[100])/32768, float64(buf.Samples[100]), 1e-4)
}

func TestDecodeFileMissing(t *testing.T) {
	d := NewDecoder(nil)
	if err := d.CheckAvailability(); err != nil {
		t.Skipf("ffmpeg not installed: %v", err)
	}
	_, err := d.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestDecodeReader(t *testing.T) {
	d := NewDecoder(&DecoderConfig{
		TargetSampleRate: 8000,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          30 * time.Second,
	})
	if err := d.CheckAvailability(); err != nil {
		t.Skipf("ffmpeg not installed: %v", err)
	}

	samples := tone(8000, 8000)
	buf, err := d.DecodeReader(context.Background(), bytes.NewReader(wavBytes(samples, 8000)))
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.SampleRate)
	assert.Len(t, buf.Samples, 8000)
	assert.InDelta(t, float64(samples[100])/32768, float64(buf.Samples[100]), 1e-4)

	_, err = d.DecodeReader(context.Background(), bytes.NewReader([]byte("not audio")))
	assert.Error(t, err)
}
