// Package template implements the micro-syntax used by task templates: due
// offsets such as "3d" or "1d12h", and ${field} placeholder interpolation in
// task names and descriptions.
package template

import (
	"fmt"
	"strconv"
	"time"

	"github.com/viant/parsly"
)

// ParseDuration parses a due offset expression.  The expression is one or
// more integer/unit pairs, e.g. "3d", "48h", "1w2d".  Supported units are
// w(eeks), d(ays), h(ours), m(inutes) and s(econds).
func ParseDuration(input string) (time.Duration, error) {
	cursor := parsly.NewCursor("", []byte(input), 0)
	var total time.Duration
	pairs := 0
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceToken, numberToken)
		if matched.Code != numberToken.Code {
			return 0, cursor.NewError(numberToken)
		}
		value, err := strconv.Atoi(matched.Text(cursor))
		if err != nil {
			return 0, err
		}

		matched = cursor.MatchOne(unitToken)
		if matched.Code != unitToken.Code {
			return 0, cursor.NewError(unitToken)
		}
		switch matched.Text(cursor) {
		case "w":
			total += time.Duration(value) * 7 * 24 * time.Hour
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "h":
			total += time.Duration(value) * time.Hour
		case "m":
			total += time.Duration(value) * time.Minute
		case "s":
			total += time.Duration(value) * time.Second
		}
		pairs++
	}
	if pairs == 0 {
		return 0, fmt.Errorf("empty duration expression")
	}
	return total, nil
}

// Expand replaces ${field} placeholders with values from data.  Placeholders
// without a matching field are left intact.
func Expand(input string, data map[string]interface{}) string {
	if input == "" {
		return input
	}
	cursor := parsly.NewCursor("", []byte(input), 0)
	var out []byte
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAny(placeholderToken, textToken)
		switch matched.Code {
		case placeholderToken.Code:
			token := matched.Text(cursor)
			name := token[2 : len(token)-1]
			if value, ok := data[name]; ok {
				out = append(out, fmt.Sprint(value)...)
				continue
			}
			out = append(out, token...)
		case textToken.Code:
			out = append(out, matched.Text(cursor)...)
		default:
			// unterminated placeholder, keep the remainder verbatim
			out = append(out, cursor.Input[cursor.Pos:]...)
			return string(out)
		}
	}
	return string(out)
}
