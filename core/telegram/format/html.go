package format

import (
	"html"
	"strings"
)

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}

// Code wraps escaped text in <code>.
func Code(text string) string {
	return "<code>" + EscapeHTML(text) + "</code>"
}

// Link renders an anchor; both parts are escaped.
func Link(href, text string) string {
	return "<a href='" + EscapeHTML(href) + "'>" + EscapeHTML(text) + "</a>"
}

// Field renders a "<b>Label:</b> value" line.
func Field(label, value string) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(EscapeHTML(label))
	b.WriteString(":</b> ")
	b.WriteString(EscapeHTML(value))
	return b.String()
}
