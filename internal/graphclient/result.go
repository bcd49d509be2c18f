package graphclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var successEnvelope = json.RawMessage(`{"success":true}`)

// Result is the outcome of a successful call: the response body as received
// and its decoded value. Numbers in Value are json.Number so large graph
// identifiers survive decoding unchanged.
type Result struct {
	Raw   json.RawMessage
	Value any

	empty bool
}

// SuccessResult returns the envelope used for responses without a body.
func SuccessResult() *Result {
	return &Result{
		Raw:   successEnvelope,
		Value: map[string]any{"success": true},
		empty: true,
	}
}

// Empty reports whether the response had no body and the result is the
// synthetic {"success": true} envelope.
func (r *Result) Empty() bool {
	return r.empty
}

// Decode unmarshals the result into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// MarshalJSON returns the raw body so a Result re-encodes verbatim.
func (r *Result) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw, nil
}

// DecodeAs decodes the outcome of a Client call into T, passing call errors
// through untouched:
//
//	g, err := graphclient.DecodeAs[graph.Graph](c.GetGraph(ctx))
func DecodeAs[T any](res *Result, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, &Error{Kind: KindDecode, Message: fmt.Sprintf("decode response: %v", err), Body: string(res.Raw), Err: err}
	}
	return out, nil
}

// decodeResult parses a success body. Exactly one JSON value is accepted.
func decodeResult(status int, data []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, decodeError(status, data, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, decodeError(status, data, errors.New("unexpected data after JSON value"))
	}
	return &Result{Raw: json.RawMessage(data), Value: v}, nil
}

func decodeError(status int, data []byte, err error) *Error {
	return &Error{
		Kind:       KindDecode,
		StatusCode: status,
		Message:    fmt.Sprintf("decode response: %v", err),
		Body:       string(data),
		Err:        err,
	}
}
