package tool

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Args reads model-supplied arguments loosely: missing keys, wrong types and
// malformed JSON all read as zero values instead of failing.
type Args struct {
	root gjson.Result
}

// ParseArgs wraps raw tool input.
func ParseArgs(raw json.RawMessage) Args {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return Args{root: gjson.Parse("{}")}
	}
	return Args{root: gjson.ParseBytes(raw)}
}

// String returns the trimmed string form of key. Numbers and booleans are
// stringified; objects and arrays read as "".
func (a Args) String(key string) string {
	v := a.root.Get(key)
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// Int returns key as an integer, or def when missing or not numeric.
// Numeric strings such as "20" are accepted.
func (a Args) Int(key string, def int) int {
	v := a.root.Get(key)
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n := gjson.Parse(strings.TrimSpace(v.Str))
		if n.Type == gjson.Number {
			return int(n.Int())
		}
	}
	return def
}
