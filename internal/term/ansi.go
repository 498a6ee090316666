package term

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// RemoveControlCharacters strips ANSI escape sequences, then drops any
// remaining C0 control bytes and DEL. Tabs and newlines are removed too:
// the result is a flat searchable view of the visible text, used for prompt
// matching and the optionally-cleaned stdout passthrough.
func RemoveControlCharacters(text string) string {
	stripped := ansi.Strip(text)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, stripped)
}
