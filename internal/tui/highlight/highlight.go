// Package highlight renders source snippets with chroma using the
// toolview palette.
package highlight

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"toolview/internal/tui/styles"
)

// SyntaxHighlight colorizes source for the terminal. The lexer is picked
// from the file name first, then sniffed from the content.
func SyntaxHighlight(source, fileName string) (string, error) {
	lexer := lexers.Match(fileName)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	style, err := chroma.NewStyle("toolview", styles.GetChromaTheme())
	if err != nil {
		style = chromaStyles.Fallback
	}
	// Drop the background so the card's own background shows through.
	built, err := style.Builder().Transform(func(entry chroma.StyleEntry) chroma.StyleEntry {
		entry.Background = 0
		return entry
	}).Build()
	if err != nil {
		built = chromaStyles.Fallback
	}

	tokens, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, built, tokens); err != nil {
		return "", err
	}
	return buf.String(), nil
}
