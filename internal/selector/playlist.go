package selector

import (
	"math/rand"
	"strings"
)

// Spin directions for the table ritual that opens a night.
const (
	Clockwise        = "clockwise"
	CounterClockwise = "counter_clockwise"
)

// Party carries the non-movie randomness a night starts with: who talks
// first (a 1-based attendee number) and which way the order runs.
type Party struct {
	Direction string `json:"direction"`
	Number    int    `json:"number"`
}

func PartyProps(rng *rand.Rand, attendeeCount int) Party {
	p := Party{Direction: Clockwise, Number: 1}
	if attendeeCount > 0 {
		p.Number = rng.Intn(attendeeCount) + 1
	}
	if rng.Intn(2) == 1 {
		p.Direction = CounterClockwise
	}
	return p
}

// PlaylistURL builds the anonymous YouTube playlist link that plays the
// night's trailers back to back. Empty when no candidate is playable.
func PlaylistURL(videoIDs []string) string {
	ids := make([]string, 0, len(videoIDs))
	for _, id := range videoIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return "https://www.youtube.com/watch_videos?video_ids=" + strings.Join(ids, ",")
}
