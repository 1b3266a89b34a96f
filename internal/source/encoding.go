package source

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// decoderFor returns a constructor for a fresh decoder of the named encoding.
// A new transformer is needed after every rewind because decoders are stateful.
//
// UTF-8 input passes through a BOM override, so a UTF-8 or UTF-16 byte order
// mark at the start of the file selects the matching decoder and is removed.
func decoderFor(name string) (func() transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return func() transform.Transformer {
			return unicode.BOMOverride(transform.Nop)
		}, nil
	case "utf-16", "utf16":
		return func() transform.Transformer {
			return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		}, nil
	case "utf-16le":
		return func() transform.Transformer {
			return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		}, nil
	case "utf-16be":
		return func() transform.Transformer {
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		}, nil
	case "latin1", "latin-1", "iso-8859-1":
		return func() transform.Transformer {
			return charmap.ISO8859_1.NewDecoder()
		}, nil
	case "windows-1252", "cp1252":
		return func() transform.Transformer {
			return charmap.Windows1252.NewDecoder()
		}, nil
	default:
		return nil, fmt.Errorf("unknown source encoding %q: %w", name, pgload.ErrInvalidConfig)
	}
}
