package jexl

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/jexl-go/jexl/internal/values"
)

// FromJSON converts a JSON document into the value shapes scripts operate
// on: objects become map[string]any, arrays []any, numbers int64 when exact
// and float64 otherwise. It is the usual way to import a host payload into a
// Context.
func FromJSON(src string) (any, error) {
	if !gjson.Valid(src) {
		return nil, fmt.Errorf("jexl: invalid JSON document")
	}
	return fromResult(gjson.Parse(src)), nil
}

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return r.String()
	case gjson.Number:
		// Preserve integer identity where the source had one.
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return i
		}
		return r.Float()
	default:
		if r.IsArray() {
			arr := r.Array()
			out := make([]any, len(arr))
			for i, el := range arr {
				out[i] = fromResult(el)
			}
			return out
		}
		if r.IsObject() {
			out := map[string]any{}
			r.ForEach(func(k, v gjson.Result) bool {
				out[k.String()] = fromResult(v)
				return true
			})
			return out
		}
		return r.Value()
	}
}

// ToJSON renders a script value as a JSON document. Sets and ranges
// serialize as arrays; anything unrecognized falls back to its display
// string.
func ToJSON(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case map[string]any:
		doc := "{}"
		for k, val := range t {
			sub, err := ToJSON(val)
			if err != nil {
				return "", err
			}
			var serr error
			doc, serr = sjson.SetRaw(doc, escapeJSONPathKey(k), sub)
			if serr != nil {
				return "", serr
			}
		}
		return doc, nil
	case []any:
		doc := "[]"
		for _, val := range t {
			sub, err := ToJSON(val)
			if err != nil {
				return "", err
			}
			var serr error
			doc, serr = sjson.SetRaw(doc, "-1", sub)
			if serr != nil {
				return "", serr
			}
		}
		return doc, nil
	case *values.Set:
		return ToJSON(t.Slice())
	case *values.Range:
		return ToJSON(t.Slice())
	case string:
		out, err := sjson.Set("{}", "v", t)
		if err != nil {
			return "", err
		}
		return gjson.Get(out, "v").Raw, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case *big.Int:
		return t.String(), nil
	case *big.Float:
		return t.Text('g', -1), nil
	default:
		return ToJSON(fmt.Sprint(v))
	}
}

// escapeJSONPathKey protects sjson path metacharacters in literal map keys.
func escapeJSONPathKey(k string) string {
	out := make([]byte, 0, len(k))
	for i := 0; i < len(k); i++ {
		switch k[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, k[i])
	}
	return string(out)
}
