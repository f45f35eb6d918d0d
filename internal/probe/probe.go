// SPDX-License-Identifier: MIT

// Package probe extracts the VideoInfo of a source file via ffprobe's
// structured JSON output.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swapline/swapline/internal/ffcmd"
)

// ErrNoVideoStream is returned when the source carries no usable video stream.
var ErrNoVideoStream = errors.New("source has no video stream")

// VideoInfo is the probed shape of a source video. Immutable once probed;
// read-only input to the encode sink and the audio remuxer.
type VideoInfo struct {
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
	Duration float64 // seconds, 0 when the container does not report it
}

// Prober runs ffprobe against source files.
type Prober struct {
	Path string // ffprobe binary, "ffprobe" when empty
}

// Probe runs a single ffprobe JSON call against path.
func (p *Prober) Probe(ctx context.Context, path string) (VideoInfo, error) {
	bin := p.Path
	if bin == "" {
		bin = "ffprobe"
	}

	proc, err := ffcmd.Start(ctx, ffcmd.Options{
		Tool: "ffprobe",
		Path: bin,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format", "-show_streams",
			path,
		},
		Stdout: true,
	})
	if err != nil {
		return VideoInfo{}, err
	}

	out, readErr := io.ReadAll(proc.Stdout())
	if err := proc.Wait(); err != nil {
		return VideoInfo{}, err
	}
	if readErr != nil {
		return VideoInfo{}, fmt.Errorf("read ffprobe output: %w", readErr)
	}

	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into VideoInfo.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (VideoInfo, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	info := VideoInfo{
		Duration: parseFloat(raw.Format.Duration),
	}

	haveVideo := false
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			// Skip cover-art streams; they are stills, not the video track.
			if s.Disposition["attached_pic"] == 1 {
				continue
			}
			if !haveVideo {
				haveVideo = true
				info.Width = s.Width
				info.Height = s.Height
				info.FPS = parseRate(s.AvgFrameRate)
				if info.FPS == 0 {
					info.FPS = parseRate(s.RFrameRate)
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if !haveVideo {
		return VideoInfo{}, ErrNoVideoStream
	}
	return info, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType    string         `json:"codec_type"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	RFrameRate   string         `json:"r_frame_rate"`
	Disposition  map[string]int `json:"disposition"`
}

// parseRate parses ffprobe's rational rate notation ("30000/1001", "25/1").
func parseRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(raw, "/")
	if !found {
		return parseFloat(raw)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
