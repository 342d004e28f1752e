package quotes

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/media"
)

// Window is a scheduled interval during which one quote is displayed.
type Window struct {
	Text  string
	Start float64
	End   float64
	Index int
}

// LoadPool reads all quote files from dir, one quote per file, trimmed.
// Empty files are skipped with a warning. A missing directory yields an
// empty pool.
func LoadPool(dir string, log zerolog.Logger) ([]string, error) {
	scan, err := media.Scan(dir, media.QuoteFormats)
	if err != nil {
		return nil, err
	}

	var pool []string
	for _, item := range scan.Items {
		contents, err := os.ReadFile(item.Path)
		if err != nil {
			return nil, fmt.Errorf("read quote file %s: %w", item.Path, err)
		}
		text := strings.TrimSpace(string(contents))
		if text == "" {
			log.Warn().Str("file", item.Path).Msg("empty quote file, skipping")
			continue
		}
		pool = append(pool, text)
	}
	return pool, nil
}

// Schedule builds the non-overlapping display windows for a run. Quotes are
// drawn round-robin from the (optionally shuffled) pool; the first window and
// every following gap start after a uniform interval in
// [MinBetween, MaxBetween]. An empty pool yields an empty schedule.
func Schedule(pool []string, cfg config.Config, rng *rand.Rand) []Window {
	if len(pool) == 0 {
		return nil
	}

	inUse := make([]string, len(pool))
	copy(inUse, pool)
	if cfg.Quotes.Shuffle {
		rng.Shuffle(len(inUse), func(i, j int) {
			inUse[i], inUse[j] = inUse[j], inUse[i]
		})
	}

	interval := func() float64 {
		return cfg.Quotes.MinBetween + rng.Float64()*(cfg.Quotes.MaxBetween-cfg.Quotes.MinBetween)
	}

	var windows []Window
	current := interval()
	for i := 0; current+cfg.Quotes.Duration <= cfg.Duration; i++ {
		windows = append(windows, Window{
			Text:  inUse[i%len(inUse)],
			Start: current,
			End:   current + cfg.Quotes.Duration,
			Index: i,
		})
		current += cfg.Quotes.Duration + interval()
	}
	return windows
}
