package preset

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// entrySchema describes one persisted preset. Checks here are structural;
// the content invariants live in Validate.
const entrySchema = `{
  "type": "object",
  "required": ["id", "name", "config"],
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "name":        {"type": "string"},
    "description": {"type": "string"},
    "icon":        {"type": "string"},
    "isDefault":   {"type": "boolean"},
    "pinned":      {"type": "boolean"},
    "createdAt":   {"type": "integer"},
    "updatedAt":   {"type": "integer"},
    "config": {
      "type": "object",
      "required": ["rules"],
      "properties": {
        "rules": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["name", "enabled"],
            "properties": {
              "name":    {"type": "string", "minLength": 1},
              "enabled": {"type": "boolean"},
              "params":  {"type": "object"}
            }
          }
        },
        "multipass":          {"type": "boolean"},
        "floatPrecision":     {"type": "integer", "minimum": 0},
        "transformPrecision": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var entryLoader = gojsonschema.NewStringLoader(entrySchema)

// checkEntry validates one raw persisted entry and returns the schema
// violations, if any.
func checkEntry(raw []byte) ([]string, error) {
	res, err := gojsonschema.Validate(entryLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	if res.Valid() {
		return nil, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out, nil
}

func joinProblems(p []string) string { return strings.Join(p, "; ") }
