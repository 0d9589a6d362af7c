package fhir

import (
	"bytes"
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Extras holds the JSON members of an element that its Go type does not
// model. They are kept in compact form and written back after the modeled
// members, so a decode/encode round trip loses nothing.
type Extras map[string]json.RawMessage

var knownMembersCache sync.Map // reflect.Type -> map[string]bool

// knownMembers returns the JSON member names declared by struct type t.
func knownMembers(t reflect.Type) map[string]bool {
	if cached, ok := knownMembersCache.Load(t); ok {
		return cached.(map[string]bool)
	}
	known := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			known[name] = true
		}
	}
	knownMembersCache.Store(t, known)
	return known
}

// decodeWithExtras decodes data into v, a pointer to a method-free struct
// type, and returns the members v has no field for.
func decodeWithExtras(data []byte, v any) (Extras, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	known := knownMembers(reflect.TypeOf(v).Elem())
	var extras Extras
	for name, raw := range members {
		if known[name] {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		if extras == nil {
			extras = Extras{}
		}
		extras[name] = buf.Bytes()
	}
	return extras, nil
}

// encodeWithExtras encodes v and appends extras in name order.
func encodeWithExtras(v any, extras Extras) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extras) == 0 {
		return data, err
	}
	names := make([]string, 0, len(extras))
	for name := range extras {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	comma := len(data) > 2
	for _, name := range names {
		if comma {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(extras[name])
		comma = true
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone deep-copies e, preserving nil.
func (e Extras) Clone() Extras {
	if e == nil {
		return nil
	}
	out := make(Extras, len(e))
	for name, raw := range e {
		out[name] = bytes.Clone(raw)
	}
	return out
}

// Equal compares two member sets by decoded value, so member order inside
// nested objects does not matter. A nil set equals an empty one.
func (e Extras) Equal(other Extras) bool {
	if len(e) != len(other) {
		return false
	}
	for name, raw := range e {
		otherRaw, ok := other[name]
		if !ok {
			return false
		}
		if bytes.Equal(raw, otherRaw) {
			continue
		}
		var a, b any
		if json.Unmarshal(raw, &a) != nil || json.Unmarshal(otherRaw, &b) != nil {
			return false
		}
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}
