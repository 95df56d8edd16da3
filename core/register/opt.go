package register

import "encoding/json"

// Opt distinguishes "field absent from the request" from "field explicitly
// set to null" in PATCH bodies. Actual step fields in particular may only be
// cleared by an explicit null, never by omission.
type Opt[T any] struct {
	Set  bool
	Null bool
	Val  T
}

func OptOf[T any](v T) Opt[T] {
	return Opt[T]{Set: true, Val: v}
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Val)
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}
