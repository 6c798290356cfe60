package session

import "strings"

// ParseArguments splits a command line into arguments.
// Spaces separate arguments unless they appear inside single or double quotes.
// Quote characters are dropped, except a quote of the other kind inside a quoted
// segment and any quote preceded by a backslash, which are kept literally.
func ParseArguments(command string) []string {
	var (
		args        []string
		current     strings.Builder
		singleQuote bool
		doubleQuote bool
		prev        rune
	)

	for i, ch := range command {
		escaped := i > 0 && prev == '\\'
		prev = ch

		switch {
		case ch == ' ':
			if singleQuote || doubleQuote {
				current.WriteRune(ch)
			} else if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case ch == '\'' && !escaped:
			switch {
			case singleQuote:
				singleQuote = false
			case doubleQuote:
				current.WriteRune(ch)
			default:
				singleQuote = true
			}
		case ch == '"' && !escaped:
			switch {
			case doubleQuote:
				doubleQuote = false
			case singleQuote:
				current.WriteRune(ch)
			default:
				doubleQuote = true
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// ArgumentsToString joins arguments back into a single display string.
func ArgumentsToString(args []string) string {
	return strings.Join(args, " ")
}
