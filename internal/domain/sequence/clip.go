package sequence

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	platformerrors "papla-server-go/internal/platform/errors"
)

// timestampPattern matches unix-second timestamps embedded in clip
// filenames, e.g. speech_1717171717.mp3. Ten digits covers dates from
// 2001 onward so shorter digit runs are treated as ordinary text.
var timestampPattern = regexp.MustCompile(`(\d{10,})`)

var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".ogg": true,
}

// Clip is a single input file for the sequencer.
type Clip struct {
	Path         string
	Name         string
	Timestamp    int64
	HasTimestamp bool
}

// ParseTimestamp extracts the first 10+ digit run from name.
func ParseTimestamp(name string) (int64, bool) {
	match := timestampPattern.FindString(name)
	if match == "" {
		return 0, false
	}
	ts, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// CollectClips lists the audio files in dir sorted into playback order:
// timestamped clips first in ascending timestamp order, untimestamped
// clips after them in name order. Subdirectories are ignored.
func CollectClips(dir string) ([]Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindFilesystem,
			"sequence.CollectClips", "read input directory", err)
	}

	var clips []Clip
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !audioExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		ts, ok := ParseTimestamp(name)
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindFilesystem,
				"sequence.CollectClips", "resolve clip path", err)
		}
		clips = append(clips, Clip{
			Path:         abs,
			Name:         name,
			Timestamp:    ts,
			HasTimestamp: ok,
		})
	}

	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		switch {
		case a.HasTimestamp && b.HasTimestamp:
			if a.Timestamp != b.Timestamp {
				return a.Timestamp < b.Timestamp
			}
			return a.Name < b.Name
		case a.HasTimestamp != b.HasTimestamp:
			return a.HasTimestamp
		default:
			return a.Name < b.Name
		}
	})

	return clips, nil
}
