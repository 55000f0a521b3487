// ABOUTME: Stream config selection for capture devices
// ABOUTME: Picks the device format closest to the requested file format
package input

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

// Choose picks the device format to open for a wanted file format.
//
// An exact match wins. Otherwise a config with the wanted channel count is
// used at the supported rate closest to the wanted one, preferring the same
// kind and bit depth. If no config has the wanted channel count the first
// config is used at its maximum rate.
func Choose(configs []Config, want audio.Format) (audio.Format, error) {
	if len(configs) == 0 {
		return audio.Format{}, ErrNoConfig
	}

	for _, c := range configs {
		if c.Kind == want.Kind && c.BitDepth == want.BitDepth &&
			c.Channels == want.Channels && c.Contains(want.SampleRate) {
			return c.Format(want.SampleRate), nil
		}
	}

	best := -1
	bestScore := 0
	for i, c := range configs {
		if c.Channels != want.Channels {
			continue
		}
		score := abs(clampRate(c, want.SampleRate) - want.SampleRate)
		if c.Kind != want.Kind || c.BitDepth != want.BitDepth {
			// a resample-only match beats any format conversion
			score += 1 << 30
		}
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		c := configs[best]
		return c.Format(clampRate(c, want.SampleRate)), nil
	}

	c := configs[0]
	if c.MaxRate <= 0 || c.Channels <= 0 {
		return audio.Format{}, fmt.Errorf("%w: %s", ErrNoConfig, c)
	}
	return c.Format(c.MaxRate), nil
}

func clampRate(c Config, rate int) int {
	if rate < c.MinRate {
		return c.MinRate
	}
	if rate > c.MaxRate {
		return c.MaxRate
	}
	return rate
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
