// Package media probes uploaded videos, extracts thumbnails and files the results
// with the media store.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// VideoInfo is what ffprobe reports about a clip
type VideoInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// VideoProcessor inspects clips and renders still frames
type VideoProcessor interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
	Thumbnail(ctx context.Context, path string, at time.Duration) ([]byte, error)
}

// FFmpegProcessor shells out to ffprobe and ffmpeg
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewFFmpegProcessor creates a processor. Empty paths fall back to the binaries on PATH.
func NewFFmpegProcessor(ffmpegPath, ffprobePath, tempDir string) (*FFmpegProcessor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "vlogbook_media")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media temp dir: %w", err)
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, tempDir: tempDir}, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Probe reads the duration and first video stream of path
func (p *FFmpegProcessor) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %v, stderr: %s", err, stderr.String())
	}
	return parseProbe(stdout.Bytes())
}

func parseProbe(raw []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	found := false
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Width, info.Height, info.Codec = s.Width, s.Height, s.CodecName
		if out.Format.Duration == "" {
			out.Format.Duration = s.Duration
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("no video stream found")
	}

	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", out.Format.Duration, err)
	}
	info.Duration = time.Duration(seconds * float64(time.Second))
	return info, nil
}

// Thumbnail renders the frame at offset as a JPEG
func (p *FFmpegProcessor) Thumbnail(ctx context.Context, path string, at time.Duration) ([]byte, error) {
	out := filepath.Join(p.tempDir, uuid.New().String()+".jpg")
	defer os.Remove(out)

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg thumbnail failed: %v, stderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	return data, nil
}

// CheckInstallation verifies both binaries can be executed
func (p *FFmpegProcessor) CheckInstallation() error {
	if err := exec.Command(p.ffmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %q: %w", p.ffmpegPath, err)
	}
	if err := exec.Command(p.ffprobePath, "-version").Run(); err != nil {
		return fmt.Errorf("ffprobe not found at %q: %w", p.ffprobePath, err)
	}
	return nil
}
