package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance"
)

// ErrNoAudio is returned when ffmpeg produced no samples
var ErrNoAudio = errors.New("no audio samples decoded")

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" yaml:"target_sample_rate" mapstructure:"target_sample_rate"`
	MaxDuration      time.Duration `json:"max_duration" yaml:"max_duration" mapstructure:"max_duration"` // 0 decodes everything
	ResampleQuality  string        `json:"resample_quality" yaml:"resample_quality" mapstructure:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path" yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // per ffmpeg/ffprobe invocation

	// Loudness normalization rewrites the dynamics the comparison scores, so
	// it is off by default
	EnableNormalization bool    `json:"enable_normalization" yaml:"enable_normalization" mapstructure:"enable_normalization"`
	TargetLUFS          float64 `json:"target_lufs" yaml:"target_lufs" mapstructure:"target_lufs"`
	TargetPeak          float64 `json:"target_peak" yaml:"target_peak" mapstructure:"target_peak"`
	LoudnessRange       float64 `json:"loudness_range" yaml:"loudness_range" mapstructure:"loudness_range"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    44100,
		MaxDuration:         0,
		ResampleQuality:     "medium",
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		Timeout:             60 * time.Second,
		EnableNormalization: false,
		TargetLUFS:          -16.0,
		TargetPeak:          -1.0,
		LoudnessRange:       8.0,
	}
}

// Decoder turns audio files of any format ffmpeg understands into mono
// sample buffers
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// AudioMetadata holds detected audio properties from ffprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// DecodeFile decodes an audio file into a mono buffer at the target sample
// rate
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*performance.SampleBuffer, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filename,
	})
	logger.Debug("Starting audio file decode")

	metadata, err := d.ProbeFile(ctx, filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := append([]string{"-i", filename}, d.buildFFmpegArgs(metadata)...)
	output, err := d.run(ctx, d.config.FFmpegPath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return d.toBuffer(output, logger)
}

// DecodeReader decodes audio streamed from r through ffmpeg's stdin
func (d *Decoder) DecodeReader(ctx context.Context, r io.Reader) (*performance.SampleBuffer, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeReader",
	})

	args := append([]string{"-i", "pipe:0"}, d.buildFFmpegArgs(nil)...)
	output, err := d.run(ctx, d.config.FFmpegPath, args, r)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return d.toBuffer(output, logger)
}

// ProbeFile uses ffprobe to read the properties of the first audio stream
func (d *Decoder) ProbeFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		filename,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

// run executes a tool under the configured timeout and returns its stdout
func (d *Decoder) run(ctx context.Context, path string, args []string, stdin io.Reader) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.logger.Debug("Running command", logging.Fields{
		"command": path + " " + strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", path, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w, stderr: %s", err, msg)
		}
		return nil, err
	}
	return output, nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// missing numeric fields are left at zero
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs builds the output arguments: mono float32 little-endian at
// the target rate on stdout. metadata may be nil when the input was not
// probed.
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-vn",
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	var filters []string
	if metadata == nil || metadata.SampleRate != d.config.TargetSampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			filters = append(filters, "aresample=resampler=soxr:precision=16")
		case "medium":
			filters = append(filters, "aresample=resampler=soxr:precision=20")
		case "high":
			filters = append(filters, "aresample=resampler=soxr:precision=28")
		}
	}
	if d.config.EnableNormalization {
		// EBU R128
		filters = append(filters, fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f",
			d.config.TargetLUFS, d.config.TargetPeak, d.config.LoudnessRange))
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	return append(args, "-v", "error", "pipe:1")
}

func (d *Decoder) toBuffer(output []byte, logger logging.Logger) (*performance.SampleBuffer, error) {
	samples := bytesToFloat32(output)
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}

	buf := performance.NewSampleBuffer(samples, d.config.TargetSampleRate)
	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": d.config.TargetSampleRate,
		"output_duration":    buf.Duration,
	})
	return buf, nil
}

// bytesToFloat32 converts raw little-endian float32 bytes, dropping a
// trailing partial sample
func bytesToFloat32(data []byte) []float32 {
	sampleCount := len(data) / 4
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float32, sampleCount)
	for i := range sampleCount {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// ValidateConfig validates the decoder configuration
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}
	if d.config.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %v", d.config.Timeout)
	}
	if d.config.MaxDuration < 0 {
		return fmt.Errorf("max duration cannot be negative: %v", d.config.MaxDuration)
	}
	switch d.config.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		return fmt.Errorf("unknown resample quality: %q", d.config.ResampleQuality)
	}
	return nil
}

// CheckAvailability reports whether ffmpeg and ffprobe can be executed
func (d *Decoder) CheckAvailability() error {
	for _, path := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("%s not found: %w", path, err)
		}
	}
	return nil
}
