package textbuffer

import (
	"testing"
	"unicode/utf8"
)

func TestSplitOnThirdInsert(t *testing.T) {
	// Chunk capacity 16 (twice the 8-byte literal), matching
	// original_source/tests/text_buffer_tests.c's split scenario: two
	// bulk inserts exactly fill the point chunk, and a third forces
	// splitPoint to run exactly once.
	b := New(16)
	b.InsertBytes([]byte("12345678"))
	b.InsertBytes([]byte("12345678"))
	b.InsertBytes([]byte("ABCDEF"))

	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}

	want := "1234567812345678ABCDEF"
	if got := b.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	if b.point.isFull() || b.point.isEmpty() {
		t.Fatalf("point chunk is full or empty after split")
	}
	if prev := b.point.prev; prev != &b.start {
		if prev.isFull() || prev.isEmpty() {
			t.Fatalf("point's predecessor chunk is full or empty after split")
		}
	}
}

func TestUTF8AcrossChunkBoundary(t *testing.T) {
	b := New(16)
	text := "1привет мир"
	if n := len(text); n != 20 {
		t.Fatalf("fixture text is %d bytes, want 20", n)
	}
	b.InsertBytes([]byte(text))

	for i := 0; i < 3; i++ {
		if !b.BackwardChar() {
			t.Fatalf("BackwardChar() failed at step %d", i)
		}
		ch, ok := b.point.firstLogicalByte()
		if !ok {
			t.Fatalf("no byte at point after step %d", i)
		}
		if ch&0xC0 == 0x80 {
			t.Fatalf("point sits on a UTF-8 continuation byte at step %d: %08b", i, ch)
		}
		if err := b.CheckInvariants(); err != nil {
			t.Fatalf("invariants violated at step %d: %v", i, err)
		}
	}
}

func TestPositionalDelete(t *testing.T) {
	b := New(16)
	text := "1привет мир"
	b.InsertBytes([]byte(text))

	if !b.SetPoint(Position{Line: 0, Char: 8}) {
		t.Fatalf("SetPoint((0,8)) failed")
	}
	b.DeleteUntil(Position{Line: 0, Char: 11})

	want := "1привет "
	if got := b.String(); got != want {
		t.Fatalf("String() after delete = %q, want %q", got, want)
	}
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}

func TestSequentialReadEqualsContent(t *testing.T) {
	b := New(4)
	text := "the quick brown fox jumps over the lazy dog"
	b.InsertBytes([]byte(text))

	var collected []byte
	b.Read(func(p []byte) bool {
		collected = append(collected, p...)
		return true
	})
	if string(collected) != text {
		t.Fatalf("Read() collected %q, want %q", collected, text)
	}
}

func TestInsertDeleteInverse(t *testing.T) {
	b := New(8)
	b.InsertBytes([]byte("hello, "))
	before := b.String()

	s := "world"
	b.InsertBytes([]byte(s))
	if n := b.BackwardChars(utf8.RuneCountInString(s)); n != utf8.RuneCountInString(s) {
		t.Fatalf("BackwardChars moved %d codepoints, want %d", n, utf8.RuneCountInString(s))
	}
	b.deleteBytes(len(s))

	if got := b.String(); got != before {
		t.Fatalf("insert/backward/delete did not restore content: got %q, want %q", got, before)
	}
}

func TestForwardCharPositionMonotonicity(t *testing.T) {
	b := New(8)
	b.InsertBytes([]byte("ab\ncd"))
	b.SetPoint(Position{})

	prev := b.GetPoint()
	for b.ForwardChar() {
		cur := b.GetPoint()
		switch {
		case cur.Line == prev.Line && cur.Char == prev.Char+1:
		case cur.Line == prev.Line+1 && cur.Char == 0:
		default:
			t.Fatalf("non-monotonic step: %+v -> %+v", prev, cur)
		}
		prev = cur
	}
}

func TestClearResetsToOrigin(t *testing.T) {
	b := New(8)
	b.InsertBytes([]byte("abcdefgh12345"))
	b.Clear()

	if !b.IsEmpty() {
		t.Fatalf("buffer not empty after Clear()")
	}
	if got := b.GetPoint(); got != (Position{}) {
		t.Fatalf("point position after Clear() = %+v, want zero", got)
	}
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated after Clear(): %v", err)
	}
}

func TestSetPointBeyondEndFails(t *testing.T) {
	b := New(8)
	b.InsertBytes([]byte("short"))
	if b.SetPoint(Position{Line: 5, Char: 0}) {
		t.Fatalf("SetPoint() beyond document end unexpectedly succeeded")
	}
}

func TestBackwardCharLosesIntraLineCharCount(t *testing.T) {
	// Pins the documented limitation (spec.md §4.2.5/§9): stepping backward
	// across a newline resets char to 0 rather than reconstructing the
	// previous line's true length.
	b := New(8)
	b.InsertBytes([]byte("abcdef\nxy"))
	b.SetPoint(Position{Line: 1, Char: 2})

	for i, want := range []Position{{1, 1}, {1, 0}} {
		if !b.BackwardChar() {
			t.Fatalf("BackwardChar() #%d failed", i)
		}
		if got := b.GetPoint(); got != want {
			t.Fatalf("BackwardChar() #%d landed at %+v, want %+v", i, got, want)
		}
	}
	if !b.BackwardChar() { // now cross the '\n' itself
		t.Fatalf("BackwardChar() failed")
	}
	pos := b.GetPoint()
	if pos.Line != 0 || pos.Char != 0 {
		t.Fatalf("GetPoint() = %+v, want {0 0} per the documented limitation", pos)
	}
}

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two chunk size")
		}
	}()
	New(10)
}
