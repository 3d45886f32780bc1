package calendar

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode"

	t "github.com/quesurifn/ics-calendar-relay/types"
)

const (
	BeginMarker     = "BEGIN:"
	CancelledMarker = "STATUS:CANCELLED"
	EndTag          = "END:VCALENDAR"

	// DefaultMaxSegmentSize bounds a single BEGIN: segment when streaming.
	DefaultMaxSegmentSize = 16 << 20
)

var (
	beginMarker     = []byte(BeginMarker)
	cancelledMarker = []byte(CancelledMarker)
)

// Filter copies the feed read from src to dst without the segments that are
// marked cancelled and makes sure the output ends with END:VCALENDAR.
func Filter(dst io.Writer, src io.Reader) (t.FilterStats, error) {
	return FilterN(dst, src, DefaultMaxSegmentSize)
}

// FilterN is Filter with an explicit limit on the size of one segment.
// A longer segment fails with bufio.ErrTooLong.
func FilterN(dst io.Writer, src io.Reader, maxSegment int) (t.FilterStats, error) {
	var stats t.FilterStats

	if maxSegment <= 0 {
		maxSegment = DefaultMaxSegmentSize
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, min(4096, maxSegment)), maxSegment)
	scanner.Split(splitSegments)

	out := &trimWriter{w: dst}
	kept := 0

	for scanner.Scan() {
		segment := scanner.Bytes()
		stats.Segments++

		if bytes.Contains(segment, cancelledMarker) {
			stats.Removed++
			continue
		}

		if kept > 0 {
			out.Write(beginMarker)
		}
		out.Write(segment)
		kept++
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}

	if !out.endsWith(EndTag) {
		out.close([]byte("\n" + EndTag))
		stats.Repaired = true
	}

	return stats, out.err
}

// FilterString runs the filter over an in-memory feed.
func FilterString(feed string) (string, t.FilterStats) {
	var b strings.Builder
	b.Grow(len(feed) + len(EndTag) + 1)

	// a strings.Reader and a strings.Builder never fail and the segment
	// limit covers the whole feed
	stats, _ := FilterN(&b, strings.NewReader(feed), len(feed)+1)

	return b.String(), stats
}

// splitSegments yields the text between BEGIN: markers, including the text
// before the first marker and after the last one, like strings.Split.
func splitSegments(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, beginMarker); i >= 0 {
		return i + len(beginMarker), data[:i], nil
	}
	if atEOF {
		return len(data), data, bufio.ErrFinalToken
	}
	return 0, nil, nil
}

// trimWriter drops leading whitespace and holds back trailing whitespace
// until more content follows, so whatever reaches w is the trimmed output.
// Every Write must contain whole runes.
type trimWriter struct {
	w       io.Writer
	started bool
	pending []byte
	tail    []byte
	err     error
}

func (tw *trimWriter) Write(p []byte) {
	if tw.err != nil {
		return
	}

	if !tw.started {
		p = bytes.TrimLeftFunc(p, unicode.IsSpace)
		if len(p) == 0 {
			return
		}
		tw.started = true
	}

	body := bytes.TrimRightFunc(p, unicode.IsSpace)
	if len(body) == 0 {
		tw.pending = append(tw.pending, p...)
		return
	}

	if len(tw.pending) > 0 {
		tw.emit(tw.pending)
		tw.pending = tw.pending[:0]
	}
	tw.emit(body)
	tw.pending = append(tw.pending, p[len(body):]...)
}

// close writes p verbatim and drops any held back whitespace.
func (tw *trimWriter) close(p []byte) {
	tw.pending = tw.pending[:0]
	tw.emit(p)
}

func (tw *trimWriter) emit(p []byte) {
	if tw.err != nil {
		return
	}
	if _, err := tw.w.Write(p); err != nil {
		tw.err = err
		return
	}

	tw.tail = append(tw.tail, p...)
	if n := len(tw.tail) - len(EndTag); n > 0 {
		tw.tail = append(tw.tail[:0], tw.tail[n:]...)
	}
}

func (tw *trimWriter) endsWith(suffix string) bool {
	return bytes.HasSuffix(tw.tail, []byte(suffix))
}
