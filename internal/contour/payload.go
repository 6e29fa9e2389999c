package contour

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// payloadSchema accepts what the contour endpoint returns: null, a flat list
// of [x, y] pairs, a list of sub-contours, or any of those wrapped in
// {"points": ...} as stored by the save endpoint.
const payloadSchema = `{
  "definitions": {
    "point": {
      "type": "array",
      "items": {"type": "number"},
      "minItems": 2,
      "maxItems": 2
    },
    "points": {
      "type": "array",
      "items": {
        "anyOf": [
          {"$ref": "#/definitions/point"},
          {"type": "array", "items": {"$ref": "#/definitions/point"}}
        ]
      }
    }
  },
  "anyOf": [
    {"type": "null"},
    {"$ref": "#/definitions/points"},
    {
      "type": "object",
      "required": ["points"],
      "properties": {"points": {"anyOf": [{"type": "null"}, {"$ref": "#/definitions/points"}]}}
    }
  ]
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(payloadSchema))
	})
	return schema, schemaErr
}

// SchemaError reports a contour payload with the wrong shape.
type SchemaError struct {
	Problems []string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contour payload: %v", e.Err)
	}
	return "contour payload: " + strings.Join(e.Problems, "; ")
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Parse validates a contour payload and flattens it into one ordered
// collection. Sub-contours are concatenated in the order they appear. An
// empty or null payload yields an empty collection.
func Parse(data []byte) (*Collection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(), nil
	}
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile contour schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, &SchemaError{Problems: problems}
	}

	root := gjson.ParseBytes(data)
	if root.IsObject() {
		root = root.Get("points")
	}
	c := New()
	root.ForEach(func(_, item gjson.Result) bool {
		elems := item.Array()
		if len(elems) > 0 && elems[0].IsArray() {
			for _, p := range elems {
				c.Append(Pt(p.Get("0").Float(), p.Get("1").Float()))
			}
			return true
		}
		if len(elems) == 2 {
			c.Append(Pt(elems[0].Float(), elems[1].Float()))
		}
		return true
	})
	return c, nil
}
