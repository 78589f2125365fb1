package hue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Object is a JSON object that remembers the order its keys were set in.
// Every object in a bridge response is decoded into an *Object.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores value under key. A key that is already present keeps its
// original position and takes the new value.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Map returns a plain map copy of the object. Nested objects are converted too.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, o.Len())
	if o == nil {
		return m
	}
	for _, k := range o.keys {
		m[k] = plain(o.values[k])
	}
	return m
}

func plain(v any) any {
	switch val := v.(type) {
	case *Object:
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON encodes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Response is the decoded body of a successful call.
type Response struct {
	// Value is the decoded body: *Object, []any, string, json.Number, bool or nil.
	Value any
	// Raw is the body exactly as received.
	Raw json.RawMessage
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Lookup walks the decoded value. String elements select object keys,
// integer elements select array indexes.
func (r *Response) Lookup(path ...any) (any, bool) {
	return Lookup(r.Value, path...)
}

// Lookup walks v the same way Response.Lookup does.
func Lookup(v any, path ...any) (any, bool) {
	cur := v
	for _, p := range path {
		switch node := cur.(type) {
		case *Object:
			key, ok := p.(string)
			if !ok {
				return nil, false
			}
			next, ok := node.Get(key)
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, ok := p.(int)
			if !ok || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// decodeValue parses a complete JSON document, keeping object key order.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeNext(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("unexpected data after top-level value")
		}
		return nil, err
	}
	return v, nil
}

func decodeNext(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeNext(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeNext(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// encodable converts values encoding/json cannot represent into their list
// form when they are iterable: iter.Seq and iter.Seq2 functions and
// receive channels. Seq2 pairs become two-element arrays. Iterables nested
// in slices, arrays, string-keyed maps and objects are converted too.
// Channels are drained until closed.
func encodable(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case *Object:
		if val == nil {
			return nil
		}
		out := NewObject()
		for _, k := range val.keys {
			out.Set(k, encodable(val.values[k]))
		}
		return out
	case json.Marshaler:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return nil
		}
		if out, ok := collectSeq(rv); ok {
			return out
		}
	case reflect.Chan:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().ChanDir()&reflect.RecvDir == 0 {
			return v
		}
		out := []any{}
		for {
			item, ok := rv.Recv()
			if !ok {
				return out
			}
			out = append(out, encodable(item.Interface()))
		}
	case reflect.Slice, reflect.Array:
		if (rv.Kind() == reflect.Slice && rv.IsNil()) || !mayHoldIterable(rv.Type().Elem()) {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = encodable(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String || !mayHoldIterable(rv.Type().Elem()) {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = encodable(iter.Value().Interface())
		}
		return out
	}
	return v
}

var objectType = reflect.TypeOf((*Object)(nil))

// mayHoldIterable reports whether values of type t can be or contain an
// iterable that needs converting.
func mayHoldIterable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return t == objectType
	}
}

// collectSeq runs rv if it has the shape of an iter.Seq or iter.Seq2 and
// returns what it yielded.
func collectSeq(rv reflect.Value) ([]any, bool) {
	t := rv.Type()
	if t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	if yield.NumIn() != 1 && yield.NumIn() != 2 {
		return nil, false
	}

	out := []any{}
	cont := reflect.ValueOf(true).Convert(yield.Out(0))
	fn := reflect.MakeFunc(yield, func(in []reflect.Value) []reflect.Value {
		if len(in) == 1 {
			out = append(out, encodable(in[0].Interface()))
		} else {
			out = append(out, []any{encodable(in[0].Interface()), encodable(in[1].Interface())})
		}
		return []reflect.Value{cont}
	})
	rv.Call([]reflect.Value{fn})
	return out, true
}

// numberString renders a decoded JSON scalar the way it appeared on the wire.
func numberString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case json.Number:
		return n.String()
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprint(n)
	}
}
