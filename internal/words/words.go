// internal/words/words.go
//
// Word list management and the guess validator.
//
// Responsibilities:
//   - Load answer and allowed-guess lists from environment-provided files
//     or fall back to the embedded defaults.
//   - Maintain lookup sets (answers only, answers ∪ guesses).
//   - Validate guesses (length, charset, allowed-list membership) before
//     they reach the classification engine.
//   - Resolve the active word for a date via the daily index scheme.
//
// Environment variables:
//   WORDS_ANSWERS_FILE=/path/to/answers.txt
//   WORDS_ALLOWED_FILE=/path/to/allowed.txt
//
// Words are normalized to lowercase; anything that is not exactly five
// ASCII letters is dropped at load time. Initialization runs once.
package words

import (
	"bufio"
	_ "embed"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"wordaday/internal/daily"
	"wordaday/internal/game"
)

//go:embed answers.txt
var embeddedAnswers string

//go:embed allowed.txt
var embeddedAllowed string

var (
	initOnce   sync.Once
	answers    []string            // canonical answers, load order preserved
	answersSet map[string]struct{} // answers only
	allowedSet map[string]struct{} // answers ∪ guesses
	initialErr error
)

// Guess validation errors, surfaced to clients verbatim.
var (
	ErrGuessLength  = errors.New("guess must be 5 letters")
	ErrGuessCharset = errors.New("guess must contain only letters")
	ErrGuessUnknown = errors.New("guess not in word list")
)

// ErrNotInitialized is returned when word lookups run before Init.
var ErrNotInitialized = errors.New("words: not initialized")

// Init loads word lists exactly once. Returns an error if the answers
// list ends up empty.
func Init() error {
	initOnce.Do(func() {
		var ansList, allowList []string

		answersPath := os.Getenv("WORDS_ANSWERS_FILE")
		allowedPath := os.Getenv("WORDS_ALLOWED_FILE")

		switch {
		case answersPath != "" && allowedPath != "":
			var err error
			ansList, err = readWordFile(answersPath)
			if err != nil {
				initialErr = err
				return
			}
			allowList, err = readWordFile(allowedPath)
			if err != nil {
				initialErr = err
				return
			}

		case answersPath == "" && allowedPath != "":
			var err error
			allowList, err = readWordFile(allowedPath)
			if err != nil {
				initialErr = err
				return
			}
			ansList = allowList

		default:
			ansList = normalizeLines(embeddedAnswers)
			allowList = normalizeLines(embeddedAllowed)
		}

		answers = ansList
		answersSet = toSet(ansList)

		// Every answer is always an allowed guess.
		allowedSet = toSet(ansList)
		for _, w := range allowList {
			allowedSet[w] = struct{}{}
		}

		if len(answers) == 0 {
			initialErr = errors.New("words: answers list is empty")
		}
	})
	return initialErr
}

// readWordFile loads one word per line, keeping only valid entries.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := normalizeWord(sc.Text()); ok {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// normalizeLines processes an embedded multiline string.
func normalizeLines(s string) []string {
	lines := strings.Split(s, "\n")
	return lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		return normalizeWord(line)
	})
}

// normalizeWord lowercases and reports whether the word is usable.
func normalizeWord(raw string) (string, bool) {
	w := strings.TrimSpace(strings.ToLower(raw))
	if w == "" || strings.HasPrefix(w, "#") {
		return "", false
	}
	if len(w) != game.WordLength || !isAlpha(w) {
		return "", false
	}
	return w, true
}

// toSet converts a list of words into a lookup set.
func toSet(list []string) map[string]struct{} {
	return lo.SliceToMap(list, func(w string) (string, struct{}) {
		return w, struct{}{}
	})
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

// Answers returns the canonical answer list in load order.
func Answers() []string { return answers }

// IsAllowed reports whether w is a valid guess (answers ∪ guesses).
func IsAllowed(w string) bool {
	_, ok := allowedSet[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func IsAnswer(w string) bool {
	_, ok := answersSet[strings.ToLower(w)]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func Stats() (answersCount, allowedCount int) {
	return len(answers), len(allowedSet)
}

// ValidateGuess normalizes w and checks it against the allowed list.
// This runs before classification; the engine itself never rejects input.
func ValidateGuess(w string) (string, error) {
	w = strings.TrimSpace(strings.ToLower(w))
	if len(w) != game.WordLength {
		return "", ErrGuessLength
	}
	if !isAlpha(w) {
		return "", ErrGuessCharset
	}
	if !IsAllowed(w) {
		return "", ErrGuessUnknown
	}
	return w, nil
}

// WordForDate returns the active answer for the given time.
func WordForDate(t time.Time, salt string) (string, error) {
	if len(answers) == 0 {
		return "", ErrNotInitialized
	}
	return answers[daily.WordIndex(t, salt, len(answers))], nil
}
