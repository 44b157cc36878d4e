// internal/game/feedback.go
//
// Per-letter classification of a guess against the target word.
// Responsibilities:
//   - Classify guesses with the two-pass algorithm so duplicate letters
//     are never over-awarded (correct positions consume their letter
//     before any present-elsewhere claims are resolved).
//   - Serialize feedback to the compact wire code, one character per
//     position: C=correct, P=present, A=absent.
//
// Classification is case-insensitive; both inputs are lowercased before
// comparison. Length/charset violations are contract errors — callers are
// expected to validate guesses against the word list beforehand, this
// package only classifies.
package game

import (
	"errors"
	"fmt"
	"strings"
)

// WordLength is the fixed length of every target word and guess.
const WordLength = 5

// Mark is the evaluation of a single letter position.
type Mark string

const (
	MarkCorrect Mark = "correct" // right letter, right position
	MarkPresent Mark = "present" // right letter, different position
	MarkAbsent  Mark = "absent"  // no remaining occurrence in the target
)

// ErrMalformedWord reports an input that is not exactly WordLength ASCII
// letters after normalization.
var ErrMalformedWord = errors.New("word must be 5 letters a-z")

// Feedback is the per-position classification of one guess, in guess order.
type Feedback []Mark

// Code renders the compact 5-character wire form, e.g. "APACA".
func (f Feedback) Code() string {
	var b strings.Builder
	b.Grow(len(f))
	for _, m := range f {
		switch m {
		case MarkCorrect:
			b.WriteByte('C')
		case MarkPresent:
			b.WriteByte('P')
		default:
			b.WriteByte('A')
		}
	}
	return b.String()
}

// ParseFeedbackCode is the inverse of Code.
func ParseFeedbackCode(code string) (Feedback, error) {
	if len(code) != WordLength {
		return nil, fmt.Errorf("feedback code %q: %w", code, ErrMalformedWord)
	}
	f := make(Feedback, WordLength)
	for i := 0; i < WordLength; i++ {
		switch code[i] {
		case 'C':
			f[i] = MarkCorrect
		case 'P':
			f[i] = MarkPresent
		case 'A':
			f[i] = MarkAbsent
		default:
			return nil, fmt.Errorf("feedback code %q: unknown mark %q", code, string(code[i]))
		}
	}
	return f, nil
}

// AllCorrect reports whether every position is MarkCorrect.
func (f Feedback) AllCorrect() bool {
	if len(f) != WordLength {
		return false
	}
	for _, m := range f {
		if m != MarkCorrect {
			return false
		}
	}
	return true
}

// Classify scores guess against target.
//
// Pass 1 marks exact positional matches and counts the remaining target
// letters. Pass 2 resolves the non-correct positions against those
// counts. Pass 1 must complete before pass 2 starts: a letter that is
// correct at a later index must not be consumed as present by an earlier
// one.
func Classify(target, guess string) (Feedback, error) {
	t, err := normalize(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	g, err := normalize(guess)
	if err != nil {
		return nil, fmt.Errorf("guess: %w", err)
	}

	res := make(Feedback, WordLength)

	// Letter counts for the non-correct target positions (a-z).
	var counts [26]int
	for i := 0; i < WordLength; i++ {
		if g[i] == t[i] {
			res[i] = MarkCorrect
		} else {
			counts[t[i]-'a']++
		}
	}
	for i := 0; i < WordLength; i++ {
		if res[i] == MarkCorrect {
			continue
		}
		if j := g[i] - 'a'; counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkAbsent
		}
	}
	return res, nil
}

// normalize lowercases w and validates length and charset.
func normalize(w string) (string, error) {
	w = strings.ToLower(strings.TrimSpace(w))
	if len(w) != WordLength || !isAlpha(w) {
		return "", ErrMalformedWord
	}
	return w, nil
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
