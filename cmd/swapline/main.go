// SPDX-License-Identifier: MIT

// swapline swaps a face into a video or image source through an external
// per-frame swap tool, with resumable file-based processing and a
// streamed low-latency mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/swapline/swapline/internal/config"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
	"github.com/swapline/swapline/internal/pipeline"
)

type flagValues struct {
	configPath string
	logLevel   string

	face           string
	source         string
	output         string
	outputTemplate string
	imageMode      bool

	swapCmd  string
	swapArgs string

	overwrite     bool
	gpu           bool
	parallelCPU   int
	parallelGPU   int
	fpsTarget     float64
	fpsSource     float64
	crf           int
	preset        string
	format        string
	imgFormat     string
	plainFormat   string
	noAudio       bool
	directAudio   bool
	audioShortest bool
	redoSwapped   bool
	redoCompleted bool
	workDir       string
	workDirRoot   string
	framesDir     string
	swappedDir    string
	keepFrames    bool
	readerArgs    string
	encodeArgs    string
	muxArgs       string
	ffmpegPath    string
	ffprobePath   string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	fv := &flagValues{}
	def := config.Default()

	fs.StringVar(&fv.configPath, "config", "", "YAML config file path")
	fs.StringVar(&fv.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	fs.StringVar(&fv.face, "face", "", "face image to swap in (required)")
	fs.StringVar(&fv.source, "source", "", "source video, image or frame directory (required)")
	fs.StringVar(&fv.output, "output", "", "output path, defaults to a .swapped sibling of the source")
	fs.StringVar(&fv.outputTemplate, "output-template", "", "templated output path ({src_bn}, {face_bnc}, {format}, ...)")
	fs.BoolVar(&fv.imageMode, "image-mode", false, "resumable file-based mode")

	fs.StringVar(&fv.swapCmd, "swap-cmd", "", "external per-frame swap command")
	fs.StringVar(&fv.swapArgs, "swap-args", "", "extra arguments for the swap command")

	fs.BoolVar(&fv.overwrite, "overwrite", def.Overwrite, "overwrite existing outputs")
	fs.BoolVar(&fv.gpu, "gpu", def.UseGPU, "use gpu workers")
	fs.IntVar(&fv.parallelCPU, "parallel-cpu", def.ParallelCPU, "cpu worker count")
	fs.IntVar(&fv.parallelGPU, "parallel-gpu", def.ParallelGPU, "gpu worker count")
	fs.Float64Var(&fv.fpsTarget, "fps-target", def.TargetFPS, "cap the source frame rate, drops frames only")
	fs.Float64Var(&fv.fpsSource, "fps-source", def.SourceFPS, "source frame rate, required for frame directory sources")
	fs.IntVar(&fv.crf, "crf", def.CRF, "output crf")
	fs.StringVar(&fv.preset, "preset", def.Preset, "output x264 preset")
	fs.StringVar(&fv.format, "format", def.Format, "video container")
	fs.StringVar(&fv.imgFormat, "img-format", def.ImageFormat, "image container")
	fs.StringVar(&fv.plainFormat, "plain-format", def.PlainFormat, "container for the audio-less intermediate")
	fs.BoolVar(&fv.noAudio, "no-audio", !def.AudioOutput, "drop the source audio track")
	fs.BoolVar(&fv.directAudio, "direct-audio", def.DirectAudio, "mux audio in the encode pass instead of two-stage")
	fs.BoolVar(&fv.audioShortest, "audio-shortest", def.AudioShortest, "truncate to the shorter of video and audio")
	fs.BoolVar(&fv.redoSwapped, "redo-swapped", def.RedoSwapped, "redo all frames when partially done")
	fs.BoolVar(&fv.redoCompleted, "redo-completed", def.RedoCompleted, "redo all frames when fully done")
	fs.StringVar(&fv.workDir, "work-dir", def.WorkDir, "scratch directory for image mode")
	fs.StringVar(&fv.workDirRoot, "work-dir-root", def.WorkDirRoot, "root for derived scratch directories")
	fs.StringVar(&fv.framesDir, "frames-dir", def.FramesDir, "extracted frames directory")
	fs.StringVar(&fv.swappedDir, "swapped-dir", def.SwappedDir, "swapped frames directory")
	fs.BoolVar(&fv.keepFrames, "keep-frames", def.KeepFrames, "keep derived scratch directories after a successful run")
	fs.StringVar(&fv.readerArgs, "reader-args", "", "extra ffmpeg args for the decoder")
	fs.StringVar(&fv.encodeArgs, "encode-args", "", "extra ffmpeg args for the encoder")
	fs.StringVar(&fv.muxArgs, "mux-args", "", "extra ffmpeg args for the audio merge")
	fs.StringVar(&fv.ffmpegPath, "ffmpeg", def.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&fv.ffprobePath, "ffprobe", def.FFprobePath, "ffprobe binary")

	return fv
}

// applyFlags overlays explicitly set flags onto the loaded config. Flags
// left at their defaults never clobber file or environment values.
func applyFlags(cfg config.Config, fs *flag.FlagSet, fv *flagValues) config.Config {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "overwrite":
			cfg.Overwrite = fv.overwrite
		case "gpu":
			cfg.UseGPU = fv.gpu
		case "parallel-cpu":
			cfg.ParallelCPU = fv.parallelCPU
		case "parallel-gpu":
			cfg.ParallelGPU = fv.parallelGPU
		case "fps-target":
			cfg.TargetFPS = fv.fpsTarget
		case "fps-source":
			cfg.SourceFPS = fv.fpsSource
		case "crf":
			cfg.CRF = fv.crf
		case "preset":
			cfg.Preset = fv.preset
		case "format":
			cfg.Format = fv.format
		case "img-format":
			cfg.ImageFormat = fv.imgFormat
		case "plain-format":
			cfg.PlainFormat = fv.plainFormat
		case "no-audio":
			cfg.AudioOutput = !fv.noAudio
		case "direct-audio":
			cfg.DirectAudio = fv.directAudio
		case "audio-shortest":
			cfg.AudioShortest = fv.audioShortest
		case "redo-swapped":
			cfg.RedoSwapped = fv.redoSwapped
		case "redo-completed":
			cfg.RedoCompleted = fv.redoCompleted
		case "work-dir":
			cfg.WorkDir = fv.workDir
		case "work-dir-root":
			cfg.WorkDirRoot = fv.workDirRoot
		case "frames-dir":
			cfg.FramesDir = fv.framesDir
		case "swapped-dir":
			cfg.SwappedDir = fv.swappedDir
		case "keep-frames":
			cfg.KeepFrames = fv.keepFrames
		case "reader-args":
			cfg.ExtraReaderArgs = strings.Fields(fv.readerArgs)
		case "encode-args":
			cfg.ExtraEncodeArgs = strings.Fields(fv.encodeArgs)
		case "mux-args":
			cfg.ExtraMuxArgs = strings.Fields(fv.muxArgs)
		case "ffmpeg":
			cfg.FFmpegPath = fv.ffmpegPath
		case "ffprobe":
			cfg.FFprobePath = fv.ffprobePath
		}
	})
	return cfg
}

func main() {
	fv := registerFlags(flag.CommandLine)
	flag.Parse()

	if err := run(flag.CommandLine, fv); err != nil {
		fmt.Fprintf(os.Stderr, "swapline: %v\n", err)
		os.Exit(1)
	}
}

func run(fs *flag.FlagSet, fv *flagValues) error {
	log.Configure(log.Config{Level: fv.logLevel})
	logger := log.WithComponent("main")

	if fv.face == "" || fv.source == "" {
		return errors.New("both -face and -source are required")
	}

	cfg, err := config.Load(fv.configPath)
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg, fs, fv)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger.Info().Str("run_id", runID).Str("source", fv.source).Msg("starting run")

	factory := newFactory(fv.swapCmd, strings.Fields(fv.swapArgs), fv.face, cfg.KillGrace)
	p := pipeline.New(cfg, factory)
	runErr := p.Run(ctx, pipeline.Request{
		Face:           fv.face,
		Source:         fv.source,
		Output:         fv.output,
		OutputTemplate: fv.outputTemplate,
		ImageMode:      fv.imageMode,
	})

	for _, line := range metrics.Summary() {
		logger.Debug().Msg(line)
	}
	if runErr != nil {
		return runErr
	}
	logger.Info().Msg("swap successful")
	return nil
}
