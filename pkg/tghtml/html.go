package tghtml

import "html"

// H represents HTML that is safe to pass to Telegram when ParseMode="HTML".
// Values of type H should be treated as already-escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// B wraps escaped text in a bold tag.
func B(s string) H { return H("<b>" + Esc(s).String() + "</b>") }
