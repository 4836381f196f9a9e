package styles

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/charmbracelet/glamour/v2/ansi"
)

// chromaStyle flattens a glamour style primitive into chroma's string
// grammar ("#rrggbb bg:#rrggbb bold italic underline").
func chromaStyle(style ansi.StylePrimitive) string {
	var parts []string
	if style.Color != nil {
		parts = append(parts, *style.Color)
	}
	if style.BackgroundColor != nil {
		parts = append(parts, "bg:"+*style.BackgroundColor)
	}
	if style.Italic != nil && *style.Italic {
		parts = append(parts, "italic")
	}
	if style.Bold != nil && *style.Bold {
		parts = append(parts, "bold")
	}
	if style.Underline != nil && *style.Underline {
		parts = append(parts, "underline")
	}
	return strings.Join(parts, " ")
}

// GetChromaTheme exposes a chroma palette derived from the markdown code
// block styling, so highlighted files and fenced blocks match.
func GetChromaTheme() chroma.StyleEntries {
	rules := CurrentTheme().S().Markdown.CodeBlock

	return chroma.StyleEntries{
		chroma.Text:                chromaStyle(rules.Chroma.Text),
		chroma.Error:               chromaStyle(rules.Chroma.Error),
		chroma.Comment:             chromaStyle(rules.Chroma.Comment),
		chroma.CommentPreproc:      chromaStyle(rules.Chroma.CommentPreproc),
		chroma.Keyword:             chromaStyle(rules.Chroma.Keyword),
		chroma.KeywordReserved:     chromaStyle(rules.Chroma.KeywordReserved),
		chroma.KeywordNamespace:    chromaStyle(rules.Chroma.KeywordNamespace),
		chroma.KeywordType:         chromaStyle(rules.Chroma.KeywordType),
		chroma.Operator:            chromaStyle(rules.Chroma.Operator),
		chroma.Punctuation:         chromaStyle(rules.Chroma.Punctuation),
		chroma.Name:                chromaStyle(rules.Chroma.Name),
		chroma.NameBuiltin:         chromaStyle(rules.Chroma.NameBuiltin),
		chroma.NameTag:             chromaStyle(rules.Chroma.NameTag),
		chroma.NameAttribute:       chromaStyle(rules.Chroma.NameAttribute),
		chroma.NameClass:           chromaStyle(rules.Chroma.NameClass),
		chroma.NameDecorator:       chromaStyle(rules.Chroma.NameDecorator),
		chroma.NameFunction:        chromaStyle(rules.Chroma.NameFunction),
		chroma.LiteralNumber:       chromaStyle(rules.Chroma.LiteralNumber),
		chroma.LiteralString:       chromaStyle(rules.Chroma.LiteralString),
		chroma.LiteralStringEscape: chromaStyle(rules.Chroma.LiteralStringEscape),
		chroma.GenericDeleted:      chromaStyle(rules.Chroma.GenericDeleted),
		chroma.GenericEmph:         chromaStyle(rules.Chroma.GenericEmph),
		chroma.GenericInserted:     chromaStyle(rules.Chroma.GenericInserted),
		chroma.GenericStrong:       chromaStyle(rules.Chroma.GenericStrong),
		chroma.GenericSubheading:   chromaStyle(rules.Chroma.GenericSubheading),
		chroma.Background:          chromaStyle(rules.Chroma.Background),
	}
}
