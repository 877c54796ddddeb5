package catalog

import (
	"path/filepath"
	"strings"
	"time"
)

// TextSliceType is the audio_file_type value for manually created text
// slices, which have no backing audio file.
const TextSliceType = "text"

// Slice represents one catalog record: a migrated audio recording (or a
// manually entered text item) together with its transcription state.
type Slice struct {
	ID       int64
	FileName string
	Title    string

	Transcribed      bool
	AudioFileSize    int64
	AudioFileType    string
	EstimatedSeconds int64
	// DurationSeconds is the probed decoded duration. Nil until probed, and
	// nilled again by the corruption repair pass when the stored value is
	// implausible (> 24h).
	DurationSeconds *float64

	Transcription     *string
	TranscribeSeconds *float64
	WordCount         *int64
	Model             *string

	RecordingDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AudioPath returns the slice's audio file location under the managed audio
// directory, or "" for text slices.
func (s *Slice) AudioPath(audioDir string) string {
	if s.AudioFileType == TextSliceType {
		return ""
	}
	return filepath.Join(audioDir, s.FileName)
}

// DisplayName returns the title when set, otherwise the filename.
func (s *Slice) DisplayName() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return s.FileName
}

// Stats aggregates catalog-wide counts used by the stats command.
type Stats struct {
	TotalSlices      int64
	TranscribedCount int64
	TotalBytes       int64
	AverageBytes     int64
	LargestBytes     int64
	// Slice counts bucketed by probed length.
	UnderMinute int64
	UnderTenMin int64
	UnderHour   int64
	OverHour    int64
	NoDuration  int64
	// AvgSecondsPerTenMinutes is observed transcription cost per 600 seconds
	// of audio, over slices with both duration and recorded time. Zero when
	// no history exists.
	AvgSecondsPerTenMinutes float64
}
