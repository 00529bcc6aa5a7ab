package tghtml

// Chunk splits s into pieces of at most n runes each, preserving order.
// It prefers to break at a newline within the last quarter of a chunk so
// formatted reports don't get cut mid-line.
func Chunk(s string, n int) []string {
	if n <= 0 || s == "" {
		return nil
	}
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		if len(runes) <= n {
			out = append(out, string(runes))
			break
		}
		cut := n
		// Look back for a newline to break on.
		for i := n; i > n*3/4; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return out
}
