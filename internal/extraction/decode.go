package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"idscan/internal/models"
)

var (
	ErrNotJSON      = errors.New("response is not a JSON object")
	ErrSchema       = errors.New("response does not match extraction schema")
	ErrNoCoreFields = errors.New("no valid data extracted")
)

// Class is the verdict of the strict decoder.
type Class int

const (
	Invalid Class = iota
	Partial
	Valid
)

func (c Class) String() string {
	switch c {
	case Valid:
		return "valid"
	case Partial:
		return "partial"
	}
	return "invalid"
}

// ModelPayload is the decoded model response restricted to known keys.
// Dropped lists fields present in the response with an unusable type.
type ModelPayload struct {
	Values     map[string]string
	Confidence *float64
	Dropped    []string
}

const payloadSchema = `{
  "type": "object",
  "properties": {
    "fullName":    {"type": ["string", "null"]},
    "idNumber":    {"type": ["string", "null"]},
    "dateOfBirth": {"type": ["string", "null"]},
    "gender":      {"type": ["string", "null"]},
    "address":     {"type": ["string", "null"]},
    "confidence":  {"type": ["number", "null"]}
  }
}`

var compiledPayloadSchema = jsonschema.MustCompileString("extraction.json", payloadSchema)

var (
	fenceOpenRe  = regexp.MustCompile("```json\\s*")
	fenceCloseRe = regexp.MustCompile("```\\s*")
	greedyObjRe  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// CleanResponse removes markdown code fences and surrounding whitespace from
// model output.
func CleanResponse(s string) string {
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// GreedyObject returns the span from the first '{' to the last '}'.
func GreedyObject(s string) (string, bool) {
	m := greedyObjRe.FindString(s)
	return m, m != ""
}

// DecodePayload parses and classifies a model response. Numbers given for
// text fields are coerced to strings, blank strings count as absent and
// fields of any other type are dropped without affecting the rest.
// An Invalid class always comes with a non-nil error; ErrNoCoreFields is
// returned with the usable values of a well-formed object.
func DecodePayload(text string) (ModelPayload, Class, error) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return ModelPayload{}, Invalid, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if dec.More() {
		return ModelPayload{}, Invalid, fmt.Errorf("%w: trailing data", ErrNotJSON)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return ModelPayload{}, Invalid, ErrNotJSON
	}

	coerceNumbers(obj)
	dropped := dropMistyped(obj)
	if err := compiledPayloadSchema.Validate(obj); err != nil {
		return ModelPayload{}, Invalid, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	p := ModelPayload{Values: map[string]string{}, Dropped: dropped}
	for _, name := range models.AllFields {
		if s, ok := obj[name].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				p.Values[name] = s
			}
		}
	}
	if n, ok := obj["confidence"].(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			p.Confidence = &f
		}
	}

	core := 0
	for _, name := range models.CoreFields {
		if _, ok := p.Values[name]; ok {
			core++
		}
	}
	switch core {
	case 0:
		return p, Invalid, ErrNoCoreFields
	case len(models.CoreFields):
		return p, Valid, nil
	default:
		return p, Partial, nil
	}
}

func coerceNumbers(obj map[string]any) {
	for _, name := range models.AllFields {
		if n, ok := obj[name].(json.Number); ok {
			obj[name] = n.String()
		}
	}
	// numeric strings are accepted for confidence, anything else is dropped
	switch c := obj["confidence"].(type) {
	case json.Number, nil:
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			obj["confidence"] = json.Number(strconv.FormatFloat(f, 'f', -1, 64))
		} else {
			delete(obj, "confidence")
		}
	default:
		delete(obj, "confidence")
	}
}

// dropMistyped deletes the top-level keys the schema rejects.
func dropMistyped(obj map[string]any) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(compiledPayloadSchema.Validate(obj), &ve) {
		return nil
	}
	var dropped []string
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if loc, ok := strings.CutPrefix(v.InstanceLocation, "/"); ok {
			key, _, _ := strings.Cut(loc, "/")
			if _, present := obj[key]; present {
				delete(obj, key)
				dropped = append(dropped, key)
			}
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return dropped
}

// compact is used for log lines.
func compact(s string, max int) string {
	var b bytes.Buffer
	if err := json.Compact(&b, []byte(s)); err == nil {
		s = b.String()
	}
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
