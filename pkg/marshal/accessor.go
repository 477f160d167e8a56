// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

// Package marshal converts values crossing the bridge boundary.
//
// Inbound maps are untyped: they hold nil, bool, numbers, strings, nested
// maps and nested lists. The accessors in this file pull one typed field out
// of such a map and keep two failures apart: a field the caller omitted
// (or set to null) is reported as missing, a field of the wrong shape is
// reported as an invalid type naming both types.
package marshal

import (
	"fmt"
	"math"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// Value is the set of shapes a bridge field can be read as.
type Value interface {
	string | bool | float64 | map[string]any | []any
}

// Required returns the value stored under key.
func Required[T Value](m map[string]any, key string) (T, error) {
	raw, ok := m[key]
	return required[T](key, raw, ok)
}

// Optional returns nil when key is absent or null.
func Optional[T Value](m map[string]any, key string) (*T, error) {
	raw, ok := m[key]
	return optional[T](key, raw, ok)
}

// RequiredInt reads a Double and truncates it.
func RequiredInt(m map[string]any, key string) (int, error) {
	f, err := Required[float64](m, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func OptionalInt(m map[string]any, key string) (*int, error) {
	f, err := Optional[float64](m, key)
	if err != nil || f == nil {
		return nil, err
	}
	i := int(*f)
	return &i, nil
}

// OptionalStrings reads a list of strings.
func OptionalStrings(m map[string]any, key string) ([]string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch list := raw.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, core.InvalidType(fmt.Sprintf("%s[%d]", key, i), TypeName(""), TypeName(item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, core.InvalidType(key, "List", TypeName(raw))
	}
}

// OptionalStringMap reads a map whose values are all strings.
func OptionalStringMap(m map[string]any, key string) (map[string]string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	return StringMap(key, raw)
}

// StringMap converts raw into a string map, naming key in errors.
func StringMap(key string, raw any) (map[string]string, error) {
	switch src := raw.(type) {
	case map[string]string:
		out := make(map[string]string, len(src))
		for k, v := range src {
			out[k] = v
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(src))
		for k, v := range src {
			s, ok := v.(string)
			if !ok {
				return nil, core.InvalidType(key+"."+k, "String", TypeName(v))
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, core.InvalidType(key, "Map", TypeName(raw))
	}
}

func required[T Value](key string, raw any, present bool) (T, error) {
	var zero T
	if !present || raw == nil {
		return zero, core.MissingProperty(key)
	}
	v, ok := cast[T](raw)
	if !ok {
		return zero, core.InvalidType(key, TypeName(zero), TypeName(raw))
	}
	return v, nil
}

func optional[T Value](key string, raw any, present bool) (*T, error) {
	if !present || raw == nil {
		return nil, nil
	}
	v, err := required[T](key, raw, true)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func cast[T Value](raw any) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case float64:
		f, ok := toFloat(raw)
		if !ok {
			return zero, false
		}
		return any(f).(T), true
	case map[string]any:
		if m, ok := raw.(map[string]string); ok {
			out := make(map[string]any, len(m))
			for k, v := range m {
				out[k] = v
			}
			return any(out).(T), true
		}
	case []any:
		if l, ok := raw.([]string); ok {
			out := make([]any, len(l))
			for i, v := range l {
				out[i] = v
			}
			return any(out).(T), true
		}
	}
	v, ok := raw.(T)
	return v, ok
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return math.NaN(), false
}

// TypeName names the shape of v the way error messages report it.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "Null"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case map[string]any, map[string]string, map[any]any:
		return "Map"
	case []any, []string, []map[string]any:
		return "List"
	}
	if _, ok := toFloat(v); ok {
		return "Double"
	}
	return fmt.Sprintf("%T", v)
}
