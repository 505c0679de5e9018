package syllabus

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	perr "github.com/yungbote/neurobridge-curriculum/internal/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding decodes raw bytes to text or reports that it cannot.
type Encoding struct {
	Name   string
	Decode func(raw []byte) (string, bool)
}

// DefaultEncodings is the trial order for syllabus files.
var DefaultEncodings = []Encoding{UTF8BOM, UTF8, Latin1, Windows1252}

var (
	UTF8BOM = Encoding{Name: "utf-8-sig", Decode: func(raw []byte) (string, bool) {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}}
	UTF8 = Encoding{Name: "utf-8", Decode: func(raw []byte) (string, bool) {
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}}
	Latin1      = charmapEncoding("latin-1", charmap.ISO8859_1)
	Windows1252 = charmapEncoding("cp1252", charmap.Windows1252)
)

func charmapEncoding(name string, cm *charmap.Charmap) Encoding {
	return Encoding{Name: name, Decode: func(raw []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	}}
}

// Decode tries encodings in order and returns the text and the winning name.
func Decode(raw []byte, encodings []Encoding) (string, string, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	tried := make([]string, 0, len(encodings))
	for _, enc := range encodings {
		tried = append(tried, enc.Name)
		if text, ok := enc.Decode(raw); ok {
			return text, enc.Name, nil
		}
	}
	return "", "", &perr.DecodingError{Tried: tried}
}
