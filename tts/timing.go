package tts

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// BaseWordsPerMinute is the speaking rate at Rate 1.0.
const BaseWordsPerMinute = 150.0

// WordTiming is the estimated position of one word within an utterance.
type WordTiming struct {
	Start     time.Duration // Offset from the start of audio
	CharIndex int           // Byte offset within the utterance text
	Length    int           // Byte length of the word
}

// EstimateDuration estimates the speaking duration for text at rate.
func EstimateDuration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	if rate <= 0 {
		rate = 1
	}

	// Slow down for complex text
	adjusted := BaseWordsPerMinute * rate * (1.0 - complexity(text)*0.2)

	seconds := float64(words) * 60.0 / adjusted
	return time.Duration(seconds * float64(time.Second))
}

// EstimateWordTimings spreads total across the words of text. Each word is
// weighted by its length plus a pause for trailing punctuation.
func EstimateWordTimings(text string, total time.Duration) []WordTiming {
	type word struct {
		index, length int
		weight        float64
	}

	var words []word
	var sum float64

	i := 0
	for i < len(text) {
		r, n := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += n
			continue
		}

		start := i
		for i < len(text) {
			r, n = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += n
		}

		token := text[start:i]
		w := float64(utf8.RuneCountInString(token)) + 2
		switch last, _ := utf8.DecodeLastRuneInString(token); last {
		case '.', '!', '?':
			w += 6
		case ',', ';', ':':
			w += 3
		}

		// Point past leading quotes so the offset lands on the word itself.
		if lead := strings.IndexFunc(token, isSpoken); lead > 0 {
			start += lead
			token = token[lead:]
		}

		words = append(words, word{index: start, length: len(token), weight: w})
		sum += w
	}

	timings := make([]WordTiming, len(words))
	var elapsed float64
	for j, w := range words {
		timings[j] = WordTiming{
			Start:     time.Duration(elapsed / sum * float64(total)),
			CharIndex: w.index,
			Length:    w.length,
		}
		elapsed += w.weight
	}

	return timings
}

// paceInterval is how often PaceWords samples the playback position.
const paceInterval = 15 * time.Millisecond

// PaceWords calls emit for each timing once position has reached its
// start. When done closes, the words not yet emitted are flushed at once.
// It returns ctx.Err() if ctx is cancelled first.
func PaceWords(ctx context.Context, timings []WordTiming, position func() time.Duration, done <-chan struct{}, emit func(WordTiming)) error {
	ticker := time.NewTicker(paceInterval)
	defer ticker.Stop()

	next := 0
	for next < len(timings) {
		pos := position()
		for next < len(timings) && timings[next].Start <= pos {
			emit(timings[next])
			next++
		}
		if next == len(timings) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for ; next < len(timings); next++ {
				emit(timings[next])
			}
		case <-ticker.C:
		}
	}

	return nil
}

// complexity scores text from 0 to 0.5: digits, punctuation pauses and long
// words all slow speech down.
func complexity(text string) float64 {
	score := 0.0

	inNumber := false
	for _, r := range text {
		isDigit := unicode.IsDigit(r)
		if isDigit && !inNumber {
			score += 0.02
		}
		inNumber = isDigit

		if strings.ContainsRune(",;:-()", r) {
			score += 0.01
		}
	}

	words := strings.Fields(text)
	long := 0
	for _, w := range words {
		if len(w) > 10 {
			long++
		}
	}
	score += float64(long) / float64(len(words)+1) * 0.1

	if score > 0.5 {
		score = 0.5
	}
	return score
}

func isSpoken(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
