// Package textbuffer implements the chunked gap-buffer rope described in
// spec.md §3.3/§4.2: a doubly-linked sequence of fixed-capacity gap chunks
// bookended by two sentinel nodes, with a designated point chunk and a
// (line, character) point position that is maintained on forward motion.
//
// The algorithms here are a direct port of original_source/src/text_buffer.c
// (itself noting it adapted the split/codepoint logic from Joseph Gentle's
// librope), translated from manual pointer/assert bookkeeping into Go method
// receivers and bool-returning motions.
package textbuffer

import (
	"errors"
	"fmt"
)

// Position is a 0-based (line, character) address, character counted in
// codepoints within the line (spec.md §3.3, Glossary "Position").
type Position struct {
	Line int
	Char int
}

func comparePosition(a, b Position) int {
	if a.Line != b.Line {
		if a.Line < b.Line {
			return -1
		}
		return 1
	}
	if a.Char != b.Char {
		if a.Char < b.Char {
			return -1
		}
		return 1
	}
	return 0
}

// Buffer is the text buffer: an ordered sequence of gap chunks with sentinel
// ends, a point chunk, and a point position.
type Buffer struct {
	chunkSize     int
	start, end    chunk
	point         *chunk
	pointPosition Position
}

// New creates an empty text buffer whose chunks have the given capacity,
// which must be a power of two (spec.md §4.2.8).
func New(chunkSize int) *Buffer {
	if chunkSize <= 0 || chunkSize&(chunkSize-1) != 0 {
		panic(fmt.Sprintf("textbuffer: chunk size %d is not a power of two", chunkSize))
	}

	b := &Buffer{chunkSize: chunkSize}
	p := newChunk(chunkSize)
	p.prev = &b.start
	p.next = &b.end
	b.start.next = p
	b.end.prev = p
	b.point = p
	return b
}

// ChunkSize reports the capacity each non-point-splitting chunk is created
// with.
func (b *Buffer) ChunkSize() int { return b.chunkSize }

// IsEmpty reports whether the buffer holds no content at all.
func (b *Buffer) IsEmpty() bool {
	return b.start.next == b.point && b.end.prev == b.point && b.point.isEmpty()
}

// Length returns the total logical byte length of the buffer.
func (b *Buffer) Length() int {
	n := 0
	for rover := b.start.next; rover != &b.end; rover = rover.next {
		n += rover.length()
	}
	return n
}

// GetPoint returns the current point position.
func (b *Buffer) GetPoint() Position { return b.pointPosition }

// splitPoint turns a full point chunk into two non-full chunks, preserving
// the alignment invariant (spec.md §4.2.2).
func (b *Buffer) splitPoint() {
	p := b.point
	capacity := b.chunkSize
	half := capacity / 2
	pointStart := p.gapStart // == p.gapEnd, the chunk is full

	gb := newChunk(b.chunkSize)

	if pointStart <= half {
		gb.insert(p.buf[half : half+half])
		gb.backward(half)

		copy(p.buf[half+pointStart:half+half], p.buf[pointStart:half])
		p.gapEnd += half

		gb.prev = p
		gb.next = p.next
		p.next.prev = gb
		p.next = gb
	} else {
		gb.insert(p.buf[0:half])

		copy(p.buf[0:pointStart-half], p.buf[half:pointStart])
		p.gapStart -= half

		gb.next = p
		gb.prev = p.prev
		p.prev.next = gb
		p.prev = gb
	}
}

// codepointSize returns the UTF-8 byte length a leading byte announces.
// RFC 3629 caps real UTF-8 at 4 bytes; the original C decoder accepted
// 5- and 6-byte sequences (a pre-RFC-3629 allowance) — this is the tightened
// behavior spec.md §9 calls out as an open question.
func codepointSize(lead byte) (int, bool) {
	switch {
	case lead <= 0x7F:
		return 1, true
	case lead <= 0xBF:
		return 0, false // continuation byte, not a valid lead
	case lead <= 0xDF:
		return 2, true
	case lead <= 0xEF:
		return 3, true
	case lead <= 0xF7:
		return 4, true
	default:
		return 0, false
	}
}

// ForwardChar advances the point by one codepoint, updating the point
// position. It returns false at end of document.
func (b *Buffer) ForwardChar() bool {
	point := b.point
	if point.atRight() && point.next == &b.end {
		return false
	}
	if point.atRight() {
		point = point.next
	}

	ch, ok := point.firstLogicalByte()
	if !ok {
		return false
	}

	if ch <= 0x7F {
		point.forward(1)
		b.point = point
		if ch == '\n' {
			b.pointPosition.Line++
			b.pointPosition.Char = 0
		} else {
			b.pointPosition.Char++
		}
		return true
	}

	size, valid := codepointSize(ch)
	if !valid {
		// A validly constructed buffer never lands on a continuation byte;
		// advance a single byte to guarantee forward progress rather than
		// looping forever on corrupt input.
		point.forward(1)
		b.point = point
		b.pointPosition.Char++
		return true
	}

	if point.gapEnd+size > point.capacity() {
		have := point.capacity() - point.gapEnd
		point.forward(have)
		remaining := size - have
		point = point.next
		point.forward(remaining)
	} else {
		point.forward(size)
	}
	b.point = point
	b.pointPosition.Char++
	return true
}

// BackwardChar steps the point back by one codepoint. It does not restore
// the intra-line character count when crossing a newline: spec.md §4.2.5
// and §9 document this as an accepted limitation of the original algorithm,
// relied upon by nothing except re-derivation via SetPoint (rewind +
// forward), which is always correct.
func (b *Buffer) BackwardChar() bool {
	point := b.point
	for {
		if point.atLeft() {
			if point.prev != &b.start {
				point = point.prev
				continue
			}
			b.point = point
			return false
		}
		point.backward(1)

		ch, ok := point.firstLogicalByte()
		if !ok {
			return false
		}

		switch {
		case ch <= 0x7F:
			b.point = point
			if ch == '\n' {
				if b.pointPosition.Line > 0 {
					b.pointPosition.Line--
				}
				b.pointPosition.Char = 0
			} else if b.pointPosition.Char > 0 {
				b.pointPosition.Char--
			}
			return true
		case ch&0xC0 == 0x80:
			// Continuation byte: keep stepping backward within this codepoint.
			continue
		default:
			if b.pointPosition.Char > 0 {
				b.pointPosition.Char--
			}
			b.point = point
			return true
		}
	}
}

// ForwardChars advances by up to n codepoints, stopping early at end of
// document, and returns how many codepoints were actually crossed.
func (b *Buffer) ForwardChars(n int) int {
	steps := 0
	for ; steps < n; steps++ {
		if !b.ForwardChar() {
			return steps
		}
	}
	return steps
}

// BackwardChars steps back by up to n codepoints, returning how many were
// actually crossed.
func (b *Buffer) BackwardChars(n int) int {
	steps := 0
	for ; steps < n; steps++ {
		if !b.BackwardChar() {
			return steps
		}
	}
	return steps
}

// rewind drives every chunk's gap to its right end while walking the point
// back to the start, resetting the point position to the origin.
func (b *Buffer) rewind() {
	b.pointPosition = Position{}
	rover := b.point
	for rover != &b.start {
		rover.backward(rover.gapStart)
		rover = rover.prev
	}
	b.point = b.start.next
}

// SetPoint repositions the point to the given (line, char) address by
// rewinding to the origin and stepping forward. It returns false, leaving
// the point at end of document, if pos lies beyond the document's end.
func (b *Buffer) SetPoint(pos Position) bool {
	b.rewind()
	for comparePosition(b.pointPosition, pos) < 0 {
		if !b.ForwardChar() {
			return false
		}
	}
	return true
}

// Clear empties the buffer, keeping (and reusing) a single point chunk, and
// resets the point position to the origin.
func (b *Buffer) Clear() {
	point := b.point
	rover := b.start.next
	for rover != &b.end {
		next := rover.next
		if rover != point {
			rover.prev = nil
			rover.next = nil
		} else {
			rover.prev = &b.start
			rover.next = &b.end
		}
		rover = next
	}
	point.clear()

	b.start.next = point
	b.end.prev = point
	b.point = point
	b.pointPosition = Position{}
}

// InsertBytes inserts data immediately before the point, splitting the
// point chunk whenever it becomes full. The point position is not advanced:
// inserted text logically sits behind the cursor (spec.md §4.2.7).
func (b *Buffer) InsertBytes(data []byte) {
	for len(data) > 0 {
		if b.point.isFull() {
			b.splitPoint()
		}
		n := b.point.gapEnd - b.point.gapStart
		if n > len(data) {
			n = len(data)
		}
		b.point.insert(data[:n])
		data = data[n:]
	}
}

// deleteBytes consumes length raw bytes following the gap in the point
// chunk, moving on to the next chunk when the point chunk has no bytes left
// after its gap, and collapsing and unlinking the point chunk if it becomes
// empty and is not the buffer's only chunk.
func (b *Buffer) deleteBytes(length int) {
	for length > 0 {
		point := b.point
		if point.atRight() {
			// The rest of a codepoint that straddles a chunk boundary lives
			// in the next chunk.
			if point.next == &b.end {
				return
			}
			point = point.next
			b.point = point
		}
		have := point.capacity() - point.gapEnd
		if length < have {
			have = length
		}
		point.delete(have)
		length -= have

		if point.isEmpty() && !(point.prev == &b.start && point.next == &b.end) {
			next := point.next
			next.prev = point.prev
			point.prev.next = next
			b.point = next
			point.prev = nil
			point.next = nil
		}
	}
}

// DeleteUntil deletes codepoint-by-codepoint forward from the point until
// the point's logical position would reach until, or the document ends.
func (b *Buffer) DeleteUntil(until Position) {
	current := b.pointPosition
	for comparePosition(current, until) < 0 {
		point := b.point
		if point.atRight() && point.next == &b.end {
			return
		}
		if point.atRight() {
			point = point.next
			b.point = point
		}

		ch, ok := point.firstLogicalByte()
		if !ok {
			return
		}

		if ch <= 0x7F {
			b.deleteBytes(1)
			if ch == '\n' {
				current.Line++
				current.Char = 0
			} else {
				current.Char++
			}
		} else {
			size, valid := codepointSize(ch)
			if !valid {
				size = 1
			}
			current.Char++
			b.deleteBytes(size)
		}
	}
}

// ReadFunc receives contiguous runs of buffer content in order. Returning
// false stops iteration early.
type ReadFunc func(p []byte) bool

// Read invokes fn with each contiguous pre-gap/post-gap byte run of every
// chunk in order; fn never sees bytes inside a gap.
func (b *Buffer) Read(fn ReadFunc) {
	for rover := b.start.next; rover != &b.end; rover = rover.next {
		if rover.isFull() {
			if !fn(rover.buf) {
				return
			}
			continue
		}
		if rover.gapStart > 0 {
			if !fn(rover.buf[:rover.gapStart]) {
				return
			}
		}
		if rover.gapEnd < rover.capacity() {
			if !fn(rover.buf[rover.gapEnd:]) {
				return
			}
		}
	}
}

// Bytes returns the buffer's full logical content.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, 0, b.Length())
	b.Read(func(p []byte) bool {
		out = append(out, p...)
		return true
	})
	return out
}

// String returns the buffer's full logical content as a string.
func (b *Buffer) String() string { return string(b.Bytes()) }

// CheckInvariants verifies the link, non-emptiness, alignment, and UTF-8
// invariants of spec.md §3.3. It is used by tests to pin the testable
// properties of spec.md §8.1; production code never calls it on the hot
// path.
func (b *Buffer) CheckInvariants() error {
	if b.start.prev != nil || b.end.next != nil {
		return errors.New("textbuffer: sentinel boundary corrupted")
	}

	pointSeen := false
	for rover := b.start.next; rover != &b.end; rover = rover.next {
		if rover.gapStart < 0 || rover.gapStart > rover.gapEnd || rover.gapEnd > rover.capacity() {
			return fmt.Errorf("textbuffer: chunk gap invariant violated (start=%d end=%d cap=%d)", rover.gapStart, rover.gapEnd, rover.capacity())
		}
		if rover.next == nil || rover.prev == nil || rover.next.prev != rover || rover.prev.next != rover {
			return errors.New("textbuffer: doubly linked list broken")
		}
		if rover == b.point {
			if pointSeen {
				return errors.New("textbuffer: point chunk reachable twice")
			}
			pointSeen = true
		}
	}
	if !pointSeen {
		return errors.New("textbuffer: point chunk not on the chunk list")
	}
	if b.point == &b.start || b.point == &b.end {
		return errors.New("textbuffer: point is a sentinel")
	}

	if !(b.start.next == b.point && b.end.prev == b.point) {
		for rover := b.start.next; rover != &b.end; rover = rover.next {
			if rover.isEmpty() {
				return errors.New("textbuffer: non-point chunk is empty")
			}
		}
	}

	for rover := b.start.next; rover != b.point; rover = rover.next {
		if !rover.atRight() {
			return errors.New("textbuffer: chunk left of point is not right-aligned")
		}
	}
	for rover := b.end.prev; rover != b.point; rover = rover.prev {
		if !rover.atLeft() {
			return errors.New("textbuffer: chunk right of point is not left-aligned")
		}
	}

	if ch, ok := b.point.firstLogicalByte(); ok && ch&0xC0 == 0x80 {
		return errors.New("textbuffer: point does not sit on a UTF-8 leading byte")
	}

	return nil
}
