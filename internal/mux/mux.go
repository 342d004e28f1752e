package mux

import (
	"context"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/quotes"
)

// Muxer combines the finished video track, the optional audio track and the
// quote overlay schedule into the final output file.
type Muxer struct {
	eng *engine.Engine
	log zerolog.Logger
}

func New(eng *engine.Engine, log zerolog.Logger) *Muxer {
	return &Muxer{eng: eng, log: log}
}

// Finalize renders the overlay chain onto the video, muxes in the audio track
// when present, and writes the output file. An empty audio path produces a
// silent video.
func (m *Muxer) Finalize(ctx context.Context, video, audio string, windows []quotes.Window, style config.QuoteStyle, output string) error {
	overlay := quotes.OverlayFilter(windows, style)
	m.log.Info().
		Int("quotes", len(windows)).
		Bool("audio", audio != "").
		Str("output", output).
		Msg("rendering final output")
	return m.eng.RenderOverlayAndMux(ctx, video, audio, overlay, output)
}
