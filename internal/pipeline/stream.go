// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"

	"github.com/swapline/swapline/internal/decode"
	"github.com/swapline/swapline/internal/dispatch"
	"github.com/swapline/swapline/internal/encode"
	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/mux"
	"github.com/swapline/swapline/internal/probe"
)

// encodeTarget resolves where the encoder writes and which audio leg it
// carries for the chosen strategy. With PlainThenMerge the encoder writes
// the intermediate and the merge pass owns the final path.
func (p *Pipeline) encodeTarget(strategy mux.Strategy, output, source string) (string, encode.AudioOptions) {
	switch strategy {
	case mux.DirectMux:
		return output, encode.AudioOptions{Source: source, Shortest: p.cfg.AudioShortest}
	case mux.PlainThenMerge:
		return mux.PlainPath(output, p.cfg.PlainContainer()), encode.AudioOptions{}
	default:
		return output, encode.AudioOptions{}
	}
}

func (p *Pipeline) mergePlain(ctx context.Context, plain, source, output string) error {
	return mux.MergeAudio(ctx, mux.MergeOptions{
		FFmpegPath: p.cfg.FFmpegPath,
		Plain:      plain,
		AudioFrom:  source,
		Output:     output,
		Shortest:   p.cfg.AudioShortest,
		ExtraArgs:  p.cfg.ExtraMuxArgs,
		Overwrite:  p.cfg.Overwrite,
		Grace:      p.cfg.KillGrace,
	})
}

// runStream pipes decoded frames through the worker pool straight into a
// live encoder, never touching the disk per frame.
func (p *Pipeline) runStream(ctx context.Context, req Request, output string, info probe.VideoInfo, fpsUse, fpsOut float64) error {
	src, err := decode.OpenFFmpeg(ctx, decode.FFmpegOptions{
		FFmpegPath: p.cfg.FFmpegPath,
		Input:      req.Source,
		Width:      info.Width,
		Height:     info.Height,
		FPS:        fpsUse,
		PostArgs:   p.cfg.ExtraReaderArgs,
		Grace:      p.cfg.KillGrace,
	})
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	return p.streamInto(ctx, req, output, info, src, fpsOut)
}

// streamInto runs the shared stream-mode tail: encoder sink, ordered
// dispatch, promotion, and the optional audio merge.
func (p *Pipeline) streamInto(ctx context.Context, req Request, output string, info probe.VideoInfo, src decode.Source, fpsOut float64) error {
	logger := log.WithComponentFromContext(ctx, "pipeline")

	strategy := mux.Select(p.cfg.AudioOutput, p.cfg.DirectAudio, info.HasAudio)
	encodeOut, audio := p.encodeTarget(strategy, output, req.Source)
	logger.Info().
		Str("source", req.Source).
		Str("output", output).
		Stringer("audio", strategy).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("streamed swap")

	sink, err := encode.NewStreamSink(ctx, encode.StreamOptions{
		FFmpegPath: p.cfg.FFmpegPath,
		Output:     encodeOut,
		Width:      info.Width,
		Height:     info.Height,
		FPS:        fpsOut,
		Video:      encode.VideoOptions{CRF: p.cfg.CRF, Preset: p.cfg.Preset},
		Audio:      audio,
		ExtraArgs:  p.cfg.ExtraEncodeArgs,
		Overwrite:  p.cfg.Overwrite,
		Grace:      p.cfg.KillGrace,
	})
	if err != nil {
		return err
	}

	err = dispatch.Stream(ctx, dispatch.StreamOptions{
		Workers: p.cfg.Workers(),
		GPU:     p.cfg.UseGPU,
	}, src, p.factory, sink.WriteFrame)
	if err != nil {
		sink.Abort()
		return err
	}
	if err := sink.Finish(); err != nil {
		return err
	}
	logger.Info().Int("frames", sink.Written()).Str("output", encodeOut).Msg("encode finished")

	if strategy == mux.PlainThenMerge {
		if err := p.mergePlain(ctx, encodeOut, req.Source, output); err != nil {
			return err
		}
	}
	return nil
}
