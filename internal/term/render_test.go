package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Basic(t *testing.T) {
	r := NewRender()

	r.Write("Hello\n")
	r.Write("World")

	out := r.Render()
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "World")
}

func TestRender_ControlCharacters(t *testing.T) {
	r := NewRender()

	r.Write("Test\x08\x08st") // backspace twice, then append
	r.Write("\nLine 2")

	out := r.Render()
	lines := strings.Split(out, "\n")
	if lines[0] != "Tesst" {
		t.Errorf("first line = %q, want %q", lines[0], "Tesst")
	}
	assert.Contains(t, out, "Line 2")
}

func TestRender_CarriageReturnClearsLine(t *testing.T) {
	r := NewRender()

	r.Write("Downloading 10%\rDownloading 50%\rDone")

	out := r.Render()
	if out != "Done" {
		t.Errorf("Render() = %q, want %q", out, "Done")
	}
}

func TestRender_DelRemovesCharacter(t *testing.T) {
	r := NewRender()

	r.Write("abc\x7f")

	if got := r.Render(); got != "ab" {
		t.Errorf("Render() = %q, want %q", got, "ab")
	}
}

func TestRender_DropsOtherControlCharacters(t *testing.T) {
	r := NewRender()

	r.Write("a\x07b\x1bc")

	if got := r.Render(); got != "abc" {
		t.Errorf("Render() = %q, want %q", got, "abc")
	}
}

func TestRender_MaxLinesEviction(t *testing.T) {
	r := NewRender()

	for i := 0; i < MaxLines+10; i++ {
		r.Write("line\n")
	}

	out := r.Render()
	got := strings.Count(out, "\n")
	if got != MaxLines {
		t.Errorf("committed lines = %d, want %d", got, MaxLines)
	}
}

func TestRender_LongLineSplit(t *testing.T) {
	r := NewRender()

	r.Write(strings.Repeat("x", MaxLineLength*2+10))

	out := r.Render()
	for i, line := range strings.Split(out, "\n") {
		if len(line) > MaxLineLength {
			t.Errorf("line %d length = %d, exceeds limit", i, len(line))
		}
	}
	// Nothing is lost by splitting.
	if gotLen := len(strings.ReplaceAll(out, "\n", "")); gotLen != MaxLineLength*2+10 {
		t.Errorf("total visible length = %d, want %d", gotLen, MaxLineLength*2+10)
	}
}

func TestRender_Clear(t *testing.T) {
	r := NewRender()

	r.Write("something\npartial")
	r.Clear()

	if got := r.Render(); got != "" {
		t.Errorf("Render() after Clear = %q, want empty", got)
	}
}
