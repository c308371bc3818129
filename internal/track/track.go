package track

import "strings"

type Info struct {
	Title          string
	Artist         string
	Album          string
	DurationMillis int64
	ArtworkURL     string
	// SourceID is the player's own id for the track (mpris:trackid, the mpd
	// file path). may be empty.
	SourceID string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.SourceID != "" && other.SourceID != "" {
		return t.SourceID == other.SourceID
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

// ID is the key lyrics and sync offsets are stored under. it is derived from
// artist and title so the same song gets the same lyrics no matter which
// player or playlist entry it was played from; the source id is the fallback
// for untagged files.
func (t *Info) ID() string {
	if t == nil {
		return ""
	}
	if t.Artist != "" && t.Title != "" {
		return normalize(t.Artist) + " - " + normalize(t.Title)
	}
	return t.SourceID
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
