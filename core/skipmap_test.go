package core

import "testing"

func TestBuildSkipMapSimple(t *testing.T) {
	input := `[1,[2],3]` + string(make([]byte, 32))
	buf := []byte(input)
	idx := BuildStructuralIndex(buf)
	skip := BuildSkipMap(idx, buf)

	if len(skip) != len(idx) {
		t.Fatalf("skip-map length %d != index length %d", len(skip), len(idx))
	}

	for i, pos := range idx {
		if buf[pos] != '[' {
			continue
		}
		j := skip[i]
		if j <= i {
			t.Fatalf("open bracket at index %d should map to a later index, got %d", i, j)
		}
		if buf[idx[j]] != ']' {
			t.Fatalf("skip-map entry %d for open at %d does not point at a ]", j, i)
		}
	}
}

func TestBuildSkipMapUnmatchedClose(t *testing.T) {
	input := `]][1]` + string(make([]byte, 32))
	buf := []byte(input)
	idx := BuildStructuralIndex(buf)
	skip := BuildSkipMap(idx, buf)
	// Should not panic; unmatched closes are ignored.
	if len(skip) != len(idx) {
		t.Fatalf("unexpected skip-map length")
	}
}

func TestBuildSkipMapUnmatchedOpen(t *testing.T) {
	input := `[1,[2]` + string(make([]byte, 32))
	buf := []byte(input)
	idx := BuildStructuralIndex(buf)
	skip := BuildSkipMap(idx, buf)
	if buf[idx[0]] != '[' {
		t.Fatalf("expected first structural position to be [")
	}
	if skip[0] != 0 {
		t.Fatalf("expected unmatched outer [ to be left paired with 0, got %d", skip[0])
	}
}
