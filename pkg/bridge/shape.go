package bridge

import (
	"encoding/json"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// validateShape checks data's top-level JSON structure against kind's
// expected wire shape before handing off to pkg/crdt's Unmarshal,
// returning InvalidShape with a field pointer on the first mismatch.
func validateShape(kind crdt.Kind, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &InvalidShape{Pointer: "/", Reason: "top-level value is not a JSON object"}
	}

	switch kind {
	case crdt.KindGCounter:
		return requireObjectOfIntegers(raw, "counters")

	case crdt.KindPNCounter:
		for _, field := range []string{"p", "n"} {
			sub, ok := raw[field]
			if !ok {
				return &InvalidShape{Pointer: "/" + field, Reason: "missing required field"}
			}
			var subRaw map[string]json.RawMessage
			if err := json.Unmarshal(sub, &subRaw); err != nil {
				return &InvalidShape{Pointer: "/" + field, Reason: "expected an object"}
			}
			if err := requireObjectOfIntegers(subRaw, "counters"); err != nil {
				return err
			}
		}
		return nil

	case crdt.KindGSet:
		return requireArray(raw, "elements")

	case crdt.KindORSet:
		if _, ok := raw["elements"]; !ok {
			return &InvalidShape{Pointer: "/elements", Reason: "missing required field"}
		}
		return nil

	case crdt.KindLWWSet:
		for _, field := range []string{"add", "remove"} {
			if err := requireArray(raw, field); err != nil {
				return err
			}
		}
		return nil

	case crdt.KindLWWRegister, crdt.KindFWWRegister:
		for _, field := range []string{"value", "timestamp", "node_id"} {
			if _, ok := raw[field]; !ok {
				return &InvalidShape{Pointer: "/" + field, Reason: "missing required field"}
			}
		}
		return nil

	case crdt.KindMVRegister:
		return requireArray(raw, "values")

	case crdt.KindLWWMap, crdt.KindORMap:
		return requireArray(raw, "entries")

	default:
		return &UnknownType{Tag: string(kind)}
	}
}

func requireObjectOfIntegers(raw map[string]json.RawMessage, field string) error {
	sub, ok := raw[field]
	if !ok {
		return &InvalidShape{Pointer: "/" + field, Reason: "missing required field"}
	}
	var m map[string]json.Number
	if err := json.Unmarshal(sub, &m); err != nil {
		return &InvalidShape{Pointer: "/" + field, Reason: "expected an object of integer values"}
	}
	return nil
}

func requireArray(raw map[string]json.RawMessage, field string) error {
	sub, ok := raw[field]
	if !ok {
		return &InvalidShape{Pointer: "/" + field, Reason: "missing required field"}
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(sub, &arr); err != nil {
		return &InvalidShape{Pointer: "/" + field, Reason: "expected an array"}
	}
	return nil
}
