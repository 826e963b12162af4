package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Serialization stops following causes at this depth
const maxCauseDepth = 16

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// SerializeError returns an error as a JSON object, with the keys:
//
//   - message: the error string
//   - type: the Go type of the error
//   - the exported fields of the error, when it is a struct
//   - cause: the wrapped error, or causes when several are wrapped
//
// If the error cannot be encoded, the object is
// {"failedToSerializeError": true, "string": "..."}.
func SerializeError(err error) json.RawMessage {
	if err == nil {
		return json.RawMessage("null")
	}
	fields, serr := serializeError(err, 0)
	data, merr := json.Marshal(fields)
	if serr != nil || merr != nil {
		data, _ = json.Marshal(map[string]any{
			"failedToSerializeError": true,
			"string":                 err.Error(),
		})
	}
	return data
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func serializeError(err error, depth int) (map[string]any, error) {
	result := make(map[string]any)

	// Fields of the error, when it encodes as a JSON object
	if isStruct(err) {
		data, jerr := json.Marshal(err)
		if jerr != nil {
			return nil, jerr
		}
		var fields map[string]any
		if json.Unmarshal(data, &fields) == nil {
			for k, v := range fields {
				result[k] = v
			}
		}
	}
	result["message"] = err.Error()
	result["type"] = fmt.Sprintf("%T", err)

	// Causes
	if depth >= maxCauseDepth {
		return result, nil
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		causes := make([]map[string]any, 0, len(e.Unwrap()))
		for _, cause := range e.Unwrap() {
			if cause == nil {
				continue
			}
			c, err := serializeError(cause, depth+1)
			if err != nil {
				return nil, err
			}
			causes = append(causes, c)
		}
		result["causes"] = causes
	default:
		if cause := errors.Unwrap(err); cause != nil {
			c, err := serializeError(cause, depth+1)
			if err != nil {
				return nil, err
			}
			result["cause"] = c
		}
	}

	return result, nil
}

// isStruct returns true if the error is a struct, or a pointer to a struct
func isStruct(err error) bool {
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.Kind() == reflect.Struct
}
