package sequence

import (
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"

	platformerrors "papla-server-go/internal/platform/errors"
)

// ProbeDuration decodes an mp3 header and reports the clip length.
// Used for history records and the session clip listing; concatenation
// itself never needs it.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.ProbeDuration", "open clip", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.ProbeDuration", "decode mp3 header", err)
	}

	// Length is in bytes of 16-bit stereo PCM, 4 bytes per sample.
	samples := decoder.Length() / 4
	if decoder.SampleRate() <= 0 {
		return 0, platformerrors.New(platformerrors.KindFilesystem,
			"sequence.ProbeDuration", "mp3 reports zero sample rate")
	}
	seconds := float64(samples) / float64(decoder.SampleRate())
	return time.Duration(seconds * float64(time.Second)), nil
}
