package breakpoints

import "strings"

// Evaluator resolves one expression hole in a log-point message against
// the current stop's frame, returning its printable form.
type Evaluator func(expr string) (string, error)

// FormatLogMessage expands `{expr}` holes in message by calling eval for
// each. Evaluation failures don't abort the whole message: the raw
// `{expr}` text is kept and the caller is told a warning occurred, since
// log points must never pause execution waiting on a broken expression.
func FormatLogMessage(message string, eval Evaluator) (formatted string, hadWarning bool) {
	var b strings.Builder
	i := 0
	for i < len(message) {
		open := strings.IndexByte(message[i:], '{')
		if open < 0 {
			b.WriteString(message[i:])
			break
		}
		open += i
		b.WriteString(message[i:open])

		closeIdx := strings.IndexByte(message[open:], '}')
		if closeIdx < 0 {
			// Unterminated hole: emit the rest verbatim.
			b.WriteString(message[open:])
			break
		}
		closeIdx += open

		expr := message[open+1: closeIdx]
		value, err := eval(expr)
		if err != nil {
			b.WriteString(message[open: closeIdx+1])
			hadWarning = true
		} else {
			b.WriteString(value)
		}
		i = closeIdx + 1
	}
	return b.String(), hadWarning
}
