package tokenizer

import (
	"errors"
	"strings"
)

var errNilCounter = errors.New("nil tokenizer counter")

// CountResult captures the outcome of counting one text.
type CountResult struct {
	Tokens int
	Words  int
}

// CountText estimates tokens for text using counter and counts its whitespace-separated words.
func CountText(counter Counter, text string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	tokens, countError := counter.CountString(text)
	if countError != nil {
		return CountResult{}, countError
	}
	return CountResult{Tokens: tokens, Words: len(strings.Fields(text))}, nil
}
