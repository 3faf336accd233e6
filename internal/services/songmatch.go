package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// matchThreshold excludes songs with barely any lyric overlap.
const matchThreshold = 0.2

// substringBoost is the floor score when the snippet appears verbatim in a
// song's known lyrics.
const substringBoost = 0.8

// Song is one entry in the matcher's lyrics database.
type Song struct {
	Title   string
	Artist  string
	RefID   string
	Snippet string
}

// SampleSongs is the built-in lyrics database.
var SampleSongs = []Song{
	{"Bohemian Rhapsody", "Queen", "song_1", "Is this the real life? Is this just fantasy?"},
	{"Hotel California", "Eagles", "song_2", "On a dark desert highway, cool wind in my hair"},
	{"Stairway to Heaven", "Led Zeppelin", "song_3", "There's a lady who's sure all that glitters is gold"},
	{"Smells Like Teen Spirit", "Nirvana", "song_4", "With the lights out, it's less dangerous"},
	{"Imagine", "John Lennon", "song_5", "Imagine there's no heaven, it's easy if you try"},
	{"Like a Rolling Stone", "Bob Dylan", "song_6", "How does it feel to be on your own"},
	{"Purple Haze", "Jimi Hendrix", "song_7", "Purple haze all in my brain"},
	{"Billie Jean", "Michael Jackson", "song_8", "She was more like a beauty queen from a movie scene"},
	{"Sweet Child O' Mine", "Guns N' Roses", "song_9", "She's got a smile that it seems to me"},
	{"Rehab", "Amy Winehouse", "song_10", "They tried to make me go to rehab, I said no, no, no"},
	{"For Those About to Rock", "AC/DC", "song_11", "We salute you, for those about to rock"},
	{"Breaking the Law", "Judas Priest", "song_12", "Breaking the law, breaking the law"},
}

// Matcher implements ports.SongMatcher with fuzzy matching over a fixed
// lyrics database.
type Matcher struct {
	songs []Song
}

// NewMatcher creates a Matcher. Passing no songs uses SampleSongs.
func NewMatcher(songs ...Song) *Matcher {
	if len(songs) == 0 {
		songs = SampleSongs
	}
	return &Matcher{songs: songs}
}

// SearchByLyrics returns candidate songs ranked by score, best first.
func (m *Matcher) SearchByLyrics(ctx context.Context, snippet string) ([]domain.SongMatch, error) {
	query := strings.ToLower(strings.TrimSpace(snippet))
	if query == "" {
		return nil, nil
	}

	var results []domain.SongMatch
	for _, song := range m.songs {
		known := strings.ToLower(song.Snippet)

		score := similarity(query, known)
		if strings.Contains(known, query) && score < substringBoost {
			score = substringBoost
		}
		if score <= matchThreshold {
			continue
		}

		results = append(results, domain.SongMatch{
			Title:  song.Title,
			Artist: song.Artist,
			Score:  math.Round(score*1000) / 1000,
			RefID:  song.RefID,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// similarity is the Dice coefficient over character bigrams.
func similarity(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	overlap := 0
	for gram, n := range ba {
		if m := bb[gram]; m > 0 {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2 * float64(overlap) / float64(total)
}

func bigrams(s string) map[string]int {
	grams := make(map[string]int)
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
