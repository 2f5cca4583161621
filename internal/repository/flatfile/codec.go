package flatfile

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates fields. Free-text fields routinely contain
// commas, so the comma is reserved for the id lists inside trip records.
const DefaultDelimiter = ';'

const quote = '"'

var (
	errUnterminatedQuote = errors.New("unterminated quoted field")
	errStrayQuote        = errors.New("quote character inside unquoted field")
	errTrailingData      = errors.New("data after closing quote")
)

// Escape quotes value when it contains the delimiter, a quote or a line
// break, doubling any quotes inside. Unescape(Escape(x)) == x for every x.
func Escape(value string, delim rune) string {
	if !strings.ContainsRune(value, delim) && !strings.ContainsAny(value, "\"\r\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// Unescape reverses Escape for a single field.
func Unescape(field string) (string, error) {
	if !strings.HasPrefix(field, `"`) {
		if strings.ContainsRune(field, quote) {
			return "", errStrayQuote
		}
		return field, nil
	}
	if len(field) < 2 || !strings.HasSuffix(field, `"`) {
		return "", errUnterminatedQuote
	}
	inner := field[1 : len(field)-1]
	if strings.Count(inner, `"`)%2 != 0 || strings.Contains(strings.ReplaceAll(inner, `""`, ""), `"`) {
		return "", errTrailingData
	}
	return strings.ReplaceAll(inner, `""`, `"`), nil
}

// JoinRecord escapes each field and joins them with delim.
func JoinRecord(fields []string, delim rune) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(delim)
		}
		b.WriteString(Escape(f, delim))
	}
	return b.String()
}

// SplitRecord parses one logical record into unescaped fields. Field bytes
// are copied as they are, so values that are not valid UTF-8 survive.
func SplitRecord(record string, delim rune) ([]string, error) {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		quoted   bool // current field opened with a quote
		closed   bool // quoted field has seen its closing quote
	)
	for i := 0; i < len(record); {
		r, size := utf8.DecodeRuneInString(record[i:])
		raw := record[i : i+size]
		i += size
		switch {
		case inQuotes:
			if r != quote {
				field.WriteString(raw)
				continue
			}
			if i < len(record) && record[i] == quote {
				field.WriteByte(quote)
				i++
				continue
			}
			inQuotes = false
			closed = true
		case r == delim:
			fields = append(fields, field.String())
			field.Reset()
			quoted, closed = false, false
		case closed:
			return nil, errTrailingData
		case r == quote:
			if quoted || field.Len() > 0 {
				return nil, errStrayQuote
			}
			quoted, inQuotes = true, true
		default:
			field.WriteString(raw)
		}
	}
	if inQuotes {
		return nil, errUnterminatedQuote
	}
	return append(fields, field.String()), nil
}

type scanState int

const (
	stateFieldStart scanState = iota
	stateUnquoted
	stateQuoted
	stateQuoteInQuoted // saw a quote inside a quoted field
)

// advance moves the record scanner over one rune. Only a quote at the start
// of a field opens a quoted section, so a stray quote in an unquoted field
// cannot swallow the lines after it.
func advance(s scanState, r, delim rune) scanState {
	switch s {
	case stateQuoted:
		if r == quote {
			return stateQuoteInQuoted
		}
		return stateQuoted
	case stateQuoteInQuoted, stateFieldStart:
		switch r {
		case quote:
			return stateQuoted
		case delim:
			return stateFieldStart
		}
		return stateUnquoted
	default:
		if r == delim {
			return stateFieldStart
		}
		return stateUnquoted
	}
}

// recordReader yields logical records. A quoted field may span several
// physical lines, so a record ends at the first line break outside quotes.
// The lines of the last record are kept so a caller that rejects a
// multi-line record can rewind and re-read everything after its first line.
type recordReader struct {
	r      *bufio.Reader
	delim  rune
	line   int // physical line number of the last line read from r
	queued []physicalLine
	last   []physicalLine
}

type physicalLine struct {
	text string // including the trailing newline, if any
	num  int
}

func newRecordReader(r io.Reader, delim rune) *recordReader {
	return &recordReader{r: bufio.NewReader(r), delim: delim}
}

func (rr *recordReader) readLine() (physicalLine, error) {
	if len(rr.queued) > 0 {
		l := rr.queued[0]
		rr.queued = rr.queued[1:]
		return l, nil
	}
	text, err := rr.r.ReadString('\n')
	if text == "" && err != nil {
		return physicalLine{}, err
	}
	rr.line++
	return physicalLine{text: text, num: rr.line}, nil
}

// next returns the record text and the line it started on. It returns
// io.EOF once the input is exhausted. When the input ends inside a quoted
// field, only the opening line is returned, with errUnterminatedQuote, and
// the lines after it are read again as records of their own.
func (rr *recordReader) next() (string, int, error) {
	rr.last = rr.last[:0]
	state := stateFieldStart
	for {
		l, err := rr.readLine()
		if err != nil {
			if err != io.EOF {
				return "", rr.line + 1, err
			}
			if len(rr.last) == 0 {
				return "", rr.line + 1, io.EOF
			}
			return rr.unterminated()
		}
		rr.last = append(rr.last, l)
		body, hasNewline := strings.CutSuffix(l.text, "\n")
		for _, r := range body {
			state = advance(state, r, rr.delim)
		}
		if state != stateQuoted {
			return rr.joinLast(), rr.last[0].num, nil
		}
		if !hasNewline {
			return rr.unterminated()
		}
	}
}

func (rr *recordReader) unterminated() (string, int, error) {
	rr.rewind()
	first := rr.last[0]
	text := strings.TrimSuffix(strings.TrimSuffix(first.text, "\n"), "\r")
	return text, first.num, errUnterminatedQuote
}

func (rr *recordReader) joinLast() string {
	var b strings.Builder
	for i, l := range rr.last {
		if i == len(rr.last)-1 {
			b.WriteString(strings.TrimSuffix(strings.TrimSuffix(l.text, "\n"), "\r"))
			break
		}
		b.WriteString(l.text)
	}
	return b.String()
}

// rewind puts back every line of the last record except its first, so the
// next call to next starts on the line after the one being rejected. It
// reports whether anything was put back.
func (rr *recordReader) rewind() bool {
	if len(rr.last) < 2 {
		return false
	}
	rest := append([]physicalLine(nil), rr.last[1:]...)
	rr.queued = append(rest, rr.queued...)
	rr.last = rr.last[:1]
	return true
}
