package background

import "errors"

var ErrTooShort = errors.New("background is too short for this video length")

// initialOffset is where a background window starts at the earliest, so
// intros of the stock clips are skipped when the clip is long enough.
const initialOffset = 180

type intner interface {
	Intn(n int) int
}

// StartAndEndTimes picks a random window of videoLength seconds inside a clip
// of clipLength seconds. The lower bound for the start begins at three
// minutes and is halved until the window fits.
func StartAndEndTimes(videoLength, clipLength int, rnd intner) (int, int, error) {
	lower := initialOffset
	for clipLength <= videoLength+lower {
		if lower == 0 {
			return 0, 0, ErrTooShort
		}
		lower /= 2
	}
	start := lower + rnd.Intn(clipLength-videoLength-lower)
	return start, start + videoLength, nil
}
