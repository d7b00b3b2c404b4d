package lake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Separators used inside each encoded record.
const (
	itemSeparator = ", "
	keySeparator  = ": "
)

// EncodeLines renders records as line-delimited JSON: one object per record,
// joined by '\n', no trailing newline. Empty input gives "".
func EncodeLines(records []Record) (string, error) {
	var buf bytes.Buffer
	for i, rec := range records {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := writeRecord(&buf, rec.raw); err != nil {
			return "", fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.String(), nil
}

// CountLines returns the number of records in an EncodeLines result.
func CountLines(blob string) int {
	if blob == "" {
		return 0
	}
	return bytes.Count([]byte(blob), []byte{'\n'}) + 1
}

func writeRecord(buf *bytes.Buffer, raw json.RawMessage) error {
	if len(raw) == 0 {
		buf.WriteString("{}")
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return writeValue(buf, dec)
}

func writeValue(buf *bytes.Buffer, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			buf.WriteByte('{')
			for first := true; dec.More(); first = false {
				if !first {
					buf.WriteString(itemSeparator)
				}
				key, err := dec.Token()
				if err != nil {
					return err
				}
				if err := writeString(buf, key.(string)); err != nil {
					return err
				}
				buf.WriteString(keySeparator)
				if err := writeValue(buf, dec); err != nil {
					return err
				}
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			for first := true; dec.More(); first = false {
				if !first {
					buf.WriteString(itemSeparator)
				}
				if err := writeValue(buf, dec); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
		// closing delimiter
		_, err := dec.Token()
		return err
	case string:
		return writeString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %T", tok)
	}
	return nil
}

// writeString writes s as an ASCII-only JSON string: every non-ASCII rune
// becomes a lowercase \uXXXX escape, with surrogate pairs above U+FFFF.
// HTML characters are left as they are.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	for _, r := range string(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})) {
		switch {
		case r < utf8.RuneSelf:
			buf.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			writeEscape(buf, hi)
			writeEscape(buf, lo)
		default:
			writeEscape(buf, r)
		}
	}
	return nil
}

func writeEscape(buf *bytes.Buffer, r rune) {
	const hex = "0123456789abcdef"
	buf.WriteString(`\u`)
	buf.WriteByte(hex[r>>12&0xF])
	buf.WriteByte(hex[r>>8&0xF])
	buf.WriteByte(hex[r>>4&0xF])
	buf.WriteByte(hex[r&0xF])
}
