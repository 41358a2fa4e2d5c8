// Package sanitize normalizes client-supplied JSON-Schema tool definitions so
// the upstream Gemini API accepts them. It is a pure transform over
// map[string]interface{} — schemas arrive as arbitrary client JSON, not a
// schema-aware Go type, so there is nothing to decode into first.
package sanitize

// forbiddenKeys are stripped wherever they appear at schema level. They are
// never stripped when they appear as property names inside a "properties"
// object — see Schema's inside-properties tracking below.
var forbiddenKeys = map[string]bool{
	"$schema":           true,
	"$id":                true,
	"$ref":               true,
	"definitions":        true,
	"$defs":              true,
	"exclusiveMinimum":   true,
	"exclusiveMaximum":   true,
	"minimum":            true,
	"maximum":            true,
	"minLength":          true,
	"maxLength":          true,
	"minItems":           true,
	"maxItems":           true,
	"propertyNames":      true,
	"patternProperties":  true,
	"additionalItems":    true,
	"default":            true,
	"pattern":            true,
	"contentMediaType":   true,
	"contentEncoding":    true,
}

var allowedFormats = map[string]bool{
	"enum":      true,
	"date-time": true,
}

// Schema sanitizes a single tool input_schema in place, returning the
// sanitized value. The input is left unmodified; a new value is returned.
func Schema(v interface{}) interface{} {
	out := removeKeys(v, false)
	out = sanitizeFormat(out)
	out = sanitizeAdditionalProperties(out)
	out = ensureTypeFields(out)
	return out
}

// removeKeys walks the schema tree, dropping forbiddenKeys at schema level.
// insideProperties marks a map whose own keys are property names (user data,
// not schema keywords): those keys are never stripped from this map, but the
// value one level down is a schema node again (forbidden keys stripped there,
// unless that value's own key is again "properties" or "items").
func removeKeys(v interface{}, insideProperties bool) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if !insideProperties && forbiddenKeys[k] {
				continue
			}
			out[k] = val
		}
		for k, val := range out {
			enteringProperties := k == "properties" || k == "items"
			out[k] = removeKeys(val, enteringProperties)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = removeKeys(e, insideProperties)
		}
		return out
	default:
		return v
	}
}

func sanitizeFormat(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if k == "format" {
				if s, ok := val.(string); ok && allowedFormats[s] {
					out[k] = s
				}
				continue
			}
			out[k] = sanitizeFormat(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sanitizeFormat(e)
		}
		return out
	default:
		return v
	}
}

func sanitizeAdditionalProperties(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if k != "additionalProperties" {
				out[k] = sanitizeAdditionalProperties(val)
				continue
			}
			out[k] = normalizeAdditionalProperties(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sanitizeAdditionalProperties(e)
		}
		return out
	default:
		return v
	}
}

func normalizeAdditionalProperties(val interface{}) interface{} {
	m, ok := val.(map[string]interface{})
	if !ok {
		return val
	}
	if len(m) == 0 {
		return false
	}
	if len(m) == 1 {
		if _, ok := m["type"]; ok {
			return m
		}
	}
	return true
}

// ensureTypeFields sets type="object" on any node that has "properties" but
// lacks "type", "anyOf", "allOf", and "oneOf".
func ensureTypeFields(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = ensureTypeFields(val)
		}
		if _, hasProps := out["properties"]; hasProps {
			_, hasType := out["type"]
			_, hasAnyOf := out["anyOf"]
			_, hasAllOf := out["allOf"]
			_, hasOneOf := out["oneOf"]
			if !hasType && !hasAnyOf && !hasAllOf && !hasOneOf {
				out["type"] = "object"
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = ensureTypeFields(e)
		}
		return out
	default:
		return v
	}
}
