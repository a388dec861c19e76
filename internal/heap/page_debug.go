package heap

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Fprintf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

func (e *errWriter) Fprintln(a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, a...)
}

// printable renders b as text, replacing control and non-printable runes
// with '.'. Invalid UTF-8 falls back to a byte-wise ASCII view.
func printable(b []byte) string {
	var buf bytes.Buffer
	keep := func(r rune) bool {
		return unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t'
	}
	if utf8.Valid(b) {
		for _, r := range string(b) {
			if keep(r) {
				buf.WriteRune(r)
			} else {
				buf.WriteByte('.')
			}
		}
		return buf.String()
	}
	for _, c := range b {
		if r := rune(c); r < utf8.RuneSelf && keep(r) {
			buf.WriteByte(c)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// Debug prints the header, slot array and tuple previews to w.
func (hp *HeapPage) Debug(w io.Writer) error {
	const maxPreview = 32
	ew := &errWriter{w: w}

	ew.Fprintf("=== Page Debug ===\n")
	ew.Fprintf("frame page_id=%d pin=%d dirty=%t\n",
		hp.Page.ID(), hp.Page.PinCount(), hp.Page.IsDirty())

	next, err := hp.NextPageID()
	if err != nil {
		ew.Fprintf("next_page_id: <error: %v>\n", err)
	}
	n, err := hp.NumTuples()
	if err != nil {
		ew.Fprintf("num_tuples: <error: %v>\n", err)
		ew.Fprintln("=== End Page Debug ===")
		return ew.err
	}
	free, err := hp.FreeSpace()
	if err != nil {
		ew.Fprintf("free space: <error: %v>\n", err)
	}
	ew.Fprintf("next_page_id=%d num_tuples=%d free=%d\n", next, n, free)

	ew.Fprintln("\n-- Slots --")
	if n == 0 {
		ew.Fprintln("(none)")
	}
	for i := 0; i < n && ew.err == nil; i++ {
		off, err := hp.slot(i)
		if err != nil {
			ew.Fprintf("[%d] <error: %v>\n", i, err)
			continue
		}
		t, err := hp.GetTuple(i)
		if err != nil {
			ew.Fprintf("[%d] off=%d <error: %v>\n", i, off, err)
			continue
		}
		preview := t
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		ew.Fprintf("[%d] off=%d len=%d hex=%s\n", i, off, t.Len(), hex.EncodeToString(preview))
		ew.Fprintf("     text=%q\n", printable(preview))
	}

	ew.Fprintln("=== End Page Debug ===")
	return ew.err
}

func (hp *HeapPage) DebugString() string {
	var b bytes.Buffer
	if err := hp.Debug(&b); err != nil {
		// best-effort: surface the error in the output so callers see it
		_, _ = b.WriteString("\n<debug write error: " + err.Error() + ">\n")
	}
	return b.String()
}
