package records

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// BOM constants
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode returns a UTF-8 reader over r. With encoding "auto" (or empty) a
// BOM selects UTF-8 or UTF-16; BOM-less input that is not valid UTF-8 is
// read as Windows-1252, the usual codepage of legacy console exports.
func Decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "auto":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return bytes.NewReader(detectAndDecode(data)), nil
	case "utf-8", "utf8":
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	case "utf-16le":
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), nil
	case "utf-16be":
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported input encoding: %s", encoding)
	}
}

func detectAndDecode(data []byte) []byte {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err == nil {
			return out
		}
	}
	if utf8.Valid(data) {
		return data
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return data
	}
	return out
}
