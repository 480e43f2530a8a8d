package tool

import "encoding/json"

// Result is the outcome of a tool invocation: either OK carrying data for the
// model, or Fail carrying a message. Both serialise to JSON.
type Result struct {
	data   any
	errMsg string
	failed bool
	extra  map[string]any
}

// OK wraps a successful payload.
func OK(data any) Result {
	return Result{data: data}
}

// Fail builds a soft error result rendered as {"error": msg}.
func Fail(msg string) Result {
	return Result{errMsg: msg, failed: true}
}

// With attaches an extra field to a Fail result. It has no effect on OK results.
func (r Result) With(key string, value any) Result {
	if !r.failed {
		return r
	}
	extra := make(map[string]any, len(r.extra)+1)
	for k, v := range r.extra {
		extra[k] = v
	}
	extra[key] = value
	r.extra = extra
	return r
}

// IsError reports whether the result is a Fail.
func (r Result) IsError() bool { return r.failed }

// Error returns the failure message, or "" for OK results.
func (r Result) Error() string { return r.errMsg }

// JSON renders the result for the model.
func (r Result) JSON() string {
	var v any = r.data
	if r.failed {
		m := make(map[string]any, len(r.extra)+1)
		for k, val := range r.extra {
			m[k] = val
		}
		m["error"] = r.errMsg
		v = m
	}
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(b)
}
