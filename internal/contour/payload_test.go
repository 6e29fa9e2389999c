package contour

import (
	"errors"
	"testing"
)

func TestParseFlatList(t *testing.T) {
	c, err := Parse([]byte(`[[10,20],[30,40],[50,60]]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := New(Pt(10, 20), Pt(30, 40), Pt(50, 60))
	if !c.Equal(want) {
		t.Fatalf("got %v, want %v", c.Points(), want.Points())
	}
}

func TestParseEmptyForms(t *testing.T) {
	for _, in := range []string{"", "   ", "null", "[]", `{"points":null}`, `{"points":[]}`} {
		c, err := Parse([]byte(in))
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if c.Len() != 0 {
			t.Fatalf("parse %q: len %d, want 0", in, c.Len())
		}
	}
}

func TestParseFlattensSubContours(t *testing.T) {
	c, err := Parse([]byte(`[[[1,2],[3,4]],[[5,6]],[7,8]]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := New(Pt(1, 2), Pt(3, 4), Pt(5, 6), Pt(7, 8))
	if !c.Equal(want) {
		t.Fatalf("got %v, want %v", c.Points(), want.Points())
	}
}

func TestParseWrappedPoints(t *testing.T) {
	c, err := Parse([]byte(`{"points":[[1.5,2.5]]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Equal(New(Pt(1.5, 2.5))) {
		t.Fatalf("got %v", c.Points())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		`{"foo":1}`,
		`[[1,2,3]]`,
		`[["a","b"]]`,
		`"points"`,
		`[1,2]`,
		`{not json`,
	} {
		_, err := Parse([]byte(in))
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("parse %q: expected SchemaError, got %v", in, err)
		}
	}
}
