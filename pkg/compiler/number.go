package compiler

import "strconv"

// parseFloat converts a lexed number token's text to float64. The lexer
// only ever produces text matching [0-9]+(\.[0-9]*)?, which strconv always
// accepts, so an error here would indicate a lexer bug, not bad input.
func parseFloat(s string) float64 {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
