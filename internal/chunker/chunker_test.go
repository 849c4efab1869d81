package chunker

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.chunkSize)
		}
		if c.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, c.overlap)
		}
	})

	t.Run("custom geometry", func(t *testing.T) {
		c := New(WithChunkSize(500), WithOverlap(50))
		if c.chunkSize != 500 || c.overlap != 50 {
			t.Errorf("expected 500/50, got %d/%d", c.chunkSize, c.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		if c.overlap >= c.chunkSize {
			t.Error("overlap should be clamped below chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		if c.chunkSize != DefaultChunkSize || c.overlap != DefaultOverlap {
			t.Errorf("expected defaults, got %d/%d", c.chunkSize, c.overlap)
		}
	})
}

func TestSplit_Empty(t *testing.T) {
	c := New()
	for _, input := range []string{"", "   ", "\n\n\n", "\t\n \n"} {
		if chunks := c.Split(input); len(chunks) != 0 {
			t.Errorf("Split(%q): expected no chunks, got %d", input, len(chunks))
		}
	}
}

func TestSplit_SingleParagraph(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	chunks := c.Split("A short paragraph.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "A short paragraph." {
		t.Errorf("unexpected chunk content: %q", chunks[0])
	}
}

func TestSplit_AccumulatesParagraphs(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(10))
	chunks := c.Split("first para\n\nsecond para\n\nthird para")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := "first para\n\nsecond para\n\nthird para"
	if chunks[0] != want {
		t.Errorf("expected %q, got %q", want, chunks[0])
	}
}

func TestSplit_EmitsOnOverflow(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10))
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)
	chunks := c.Split(p1 + "\n\n" + p2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != p1 {
		t.Errorf("first chunk should be the first paragraph, got %q", chunks[0])
	}
	// Second chunk is seeded with the last 10 characters of the first.
	want := p1[20:] + "\n\n" + p2
	if chunks[1] != want {
		t.Errorf("expected %q, got %q", want, chunks[1])
	}
}

func TestSplit_OversizedParagraphEmittedWhole(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(10))
	big := strings.Repeat("x", 200)
	chunks := c.Split("small\n\n" + big + "\n\ntail")

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[1], big) {
		t.Error("oversized paragraph should be emitted whole, not split")
	}
}

func TestSplit_NoOverlapSeedWhenDisabled(t *testing.T) {
	c := New(WithChunkSize(50), WithOverlap(0))
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)
	chunks := c.Split(p1 + "\n\n" + p2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1] != p2 {
		t.Errorf("expected second chunk without seed, got %q", chunks[1])
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	// Concatenating chunks with overlap seeds removed reproduces the
	// original paragraph sequence.
	c := New(WithChunkSize(40), WithOverlap(8))
	paragraphs := []string{
		"alpha beta gamma",
		"delta epsilon zeta",
		"eta theta iota kappa",
		"lambda mu nu",
	}
	text := strings.Join(paragraphs, "\n\n")
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}

	// Every paragraph appears, in order, across the chunk sequence.
	joined := strings.Join(chunks, "\n\n")
	last := 0
	for _, p := range paragraphs {
		idx := strings.Index(joined[last:], p)
		if idx < 0 {
			t.Fatalf("paragraph %q missing or out of order", p)
		}
		last += idx
	}
}

func TestSplit_NormalisesWindowsLineEndings(t *testing.T) {
	c := New()
	chunks := c.Split("one\r\n\r\ntwo")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "one\n\ntwo" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}
