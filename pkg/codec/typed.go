package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// Identified is implemented by list entries that carry a mandatory key.
// Entries whose key is empty are dropped by DecodeList and by DecodeTyped
// when T is a slice of them.
type Identified interface {
	IdentityKey() string
}

var identifiedType = reflect.TypeOf((*Identified)(nil)).Elem()

// DecodeTyped decodes an inner payload into T. When T is a slice whose
// elements are Identified, null entries and entries without a key are dropped.
func DecodeTyped[T any](payload string) (res result.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.FailureWithPayload[T](result.CodeParseFailure, fmt.Sprintf("panic decoding payload: %v", r), payload)
		}
	}()

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || trimmed == "null" {
		return result.Failure[T](result.CodeSdkReturnedNull, "empty payload")
	}

	var v T
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return result.FailureWithPayload[T](result.CodeParseFailure, err.Error(), payload)
	}
	dropUnidentified(reflect.ValueOf(&v).Elem())
	return result.Success(v, payload)
}

// dropUnidentified filters a slice of Identified elements in place.
func dropUnidentified(list reflect.Value) {
	if list.Kind() != reflect.Slice || list.IsNil() {
		return
	}
	elem := list.Type().Elem()
	if !elem.Implements(identifiedType) && !reflect.PointerTo(elem).Implements(identifiedType) {
		return
	}

	kept := reflect.MakeSlice(list.Type(), 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		item := list.Index(i)
		if identityKey(item) != "" {
			kept = reflect.Append(kept, item)
		}
	}
	list.Set(kept)
}

// identityKey returns the key of a slice element, or "" for a nil element.
func identityKey(item reflect.Value) string {
	switch item.Kind() {
	case reflect.Pointer, reflect.Interface:
		if item.IsNil() {
			return ""
		}
	}
	if id, ok := item.Interface().(Identified); ok {
		return id.IdentityKey()
	}
	if item.CanAddr() {
		if id, ok := item.Addr().Interface().(Identified); ok {
			return id.IdentityKey()
		}
	}
	return ""
}

// DecodeList decodes a list payload. The payload may be a bare JSON array or
// an object holding the array under one of fields (tried in order). Null
// entries and entries without an identity key are filtered out, since the
// upstream service occasionally emits partially populated records.
func DecodeList[T Identified](payload string, fields ...string) (res result.Result[[]T]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.FailureWithPayload[[]T](result.CodeParseFailure, fmt.Sprintf("panic decoding list: %v", r), payload)
		}
	}()

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || trimmed == "null" {
		return result.Failure[[]T](result.CodeSdkReturnedNull, "empty payload")
	}

	items, err := listItems([]byte(trimmed), fields)
	if err != nil {
		return result.FailureWithPayload[[]T](result.CodeParseFailure, err.Error(), payload)
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if len(item) == 0 || bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return result.FailureWithPayload[[]T](result.CodeParseFailure, err.Error(), payload)
		}
		if v.IdentityKey() == "" {
			continue
		}
		out = append(out, v)
	}
	return result.Success(out, payload)
}

func listItems(data []byte, fields []string) ([]json.RawMessage, error) {
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("payload is an object without a list field %v", fields)
}
