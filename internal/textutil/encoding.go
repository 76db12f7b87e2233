// Package textutil repairs export text and formats it for terminal output.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Chat exports are UTF-8 by contract. Files that are not were almost always
// re-saved by an editor in a legacy code page, so those are tried in turn
// after detection fails.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
	charmap.ISO8859_15,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
}

var encodingsByName = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
	"iso-8859-2":   charmap.ISO8859_2,
	"latin2":       charmap.ISO8859_2,
	"shift_jis":    japanese.ShiftJIS,
	"shift-jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"eucjp":        japanese.EUCJP,
	"iso-2022-jp":  japanese.ISO2022JP,
	"euc-kr":       korean.EUCKR,
	"euckr":        korean.EUCKR,
	"gb2312":       simplifiedchinese.GBK,
	"gbk":          simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
	"big-5":        traditionalchinese.Big5,
	"koi8-r":       charmap.KOI8R,
	"koi8-u":       charmap.KOI8U,
}

// EncodingByName returns the decoder for an IANA charset name, matched
// case-insensitively, or nil if the charset is not supported.
func EncodingByName(name string) encoding.Encoding {
	return encodingsByName[strings.ToLower(name)]
}

// RepairUTF8 returns data unchanged when it is valid UTF-8. Otherwise it
// detects the charset and transcodes, falling back to a fixed list of
// common code pages, and finally to replacing the invalid bytes.
func RepairUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	// Detection is unreliable on short input, so accept lower confidence there.
	minConfidence := 30
	if len(data) > 50 {
		minConfidence = 50
	}
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result.Confidence >= minConfidence {
		if enc := EncodingByName(result.Charset); enc != nil {
			if decoded, ok := decode(enc, data); ok {
				return decoded
			}
		}
	}

	for _, enc := range fallbackEncodings {
		if decoded, ok := decode(enc, data); ok {
			return decoded
		}
	}

	return SanitizeUTF8(data)
}

// EnsureUTF8 is RepairUTF8 for strings.
func EnsureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string(RepairUTF8([]byte(s)))
}

// SanitizeUTF8 replaces every invalid byte with U+FFFD.
func SanitizeUTF8(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}

func decode(enc encoding.Encoding, data []byte) ([]byte, bool) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(decoded) {
		return nil, false
	}
	return decoded, true
}
