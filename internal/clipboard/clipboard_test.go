package clipboard

import (
	"errors"
	"testing"

	"github.com/example/slicecontour/internal/contour"
)

func TestFormatParsePoints(t *testing.T) {
	c := contour.New(contour.Pt(1, 2), contour.Pt(3.5, 4))
	text, err := FormatPoints(c)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if text != "[[1,2],[3.5,4]]" {
		t.Fatalf("text %q", text)
	}
	got, err := ParsePoints("  " + text + "\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(c) {
		t.Fatalf("points %v", got.Points())
	}
}

func TestParsePointsAcceptsServicePayload(t *testing.T) {
	got, err := ParsePoints(`{"points": [[[0,0],[1,1]],[[2,2]]]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("len %d", got.Len())
	}
}

func TestParsePointsRejectsGarbage(t *testing.T) {
	if _, err := ParsePoints(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
	var schemaErr *contour.SchemaError
	if _, err := ParsePoints(`{"nope": true}`); !errors.As(err, &schemaErr) {
		t.Fatalf("garbage: %v", err)
	}
}
