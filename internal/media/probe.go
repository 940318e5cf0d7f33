package media

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const probeTimeout = 30 * time.Second

// Prober reports the duration of a media file in seconds.
type Prober func(path string) (float64, error)

// Probe reads format.duration from ffprobe's JSON output.
func Probe(path string) (float64, error) {
	out, err := ffmpeg.ProbeWithTimeout(path, probeTimeout, ffmpeg.KwArgs{})
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(path, out)
}

func parseDuration(path, probeJSON string) (float64, error) {
	d := gjson.Get(probeJSON, "format.duration")
	if !d.Exists() {
		return 0, fmt.Errorf("ffprobe %s: no format.duration in output", path)
	}
	secs := d.Float()
	if secs <= 0 {
		return 0, fmt.Errorf("ffprobe %s: invalid duration %q", path, d.String())
	}
	return secs, nil
}
