package template

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	numberCode
	unitCode
	textCode
	placeholderCode
)

// Token definitions
var (
	whitespaceToken  = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	numberToken      = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	unitToken        = parsly.NewToken(unitCode, "Unit", &unitMatcher{})
	textToken        = parsly.NewToken(textCode, "Text", &textMatcher{})
	placeholderToken = parsly.NewToken(placeholderCode, "Placeholder", &placeholderMatcher{})
)

// numberMatcher matches a run of decimal digits
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if !isDigit(input[i]) {
			break
		}
		matched++
	}
	return matched
}

// unitMatcher matches a single duration unit letter
type unitMatcher struct{}

func (m *unitMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	switch input[pos] {
	case 'w', 'd', 'h', 'm', 's':
		return 1
	}
	return 0
}

// textMatcher matches literal text up to the next placeholder start
type textMatcher struct{}

func (m *textMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '$' && i+1 < size && input[i+1] == '{' {
			break
		}
		matched++
	}
	return matched
}

// placeholderMatcher matches ${name}
type placeholderMatcher struct{}

func (m *placeholderMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos+1 >= size || input[pos] != '$' || input[pos+1] != '{' {
		return 0
	}
	for i := pos + 2; i < size; i++ {
		if input[i] == '}' {
			return i - pos + 1
		}
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
