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

package marshal

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// Normalize converts v into its canonical JSON value: nil, bool, float64,
// string, []any or map[string]any. Input is assumed acyclic.
func Normalize(v any) (any, error) {
	return normalize("", v)
}

// NormalizeMap is Normalize for a map root.
func NormalizeMap(m map[string]any) (map[string]any, error) {
	return normalizeMap("", m)
}

func normalizeMap(path string, m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		n, err := normalize(joinKey(path, k), v)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

func normalize(path string, v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, core.InvalidValue(pathOr(path), t.String())
		}
		return finite(path, f)
	case map[string]any:
		return normalizeMap(path, t)
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return nil, core.InvalidValue(joinKey(path, "property key"), fmt.Sprint(k))
			}
			n, err := normalize(joinKey(path, key), item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalize(indexKey(path, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalizeMap(indexKey(path, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	if f, ok := toFloat(v); ok {
		return finite(path, f)
	}
	return nil, core.InvalidType(pathOr(path), "JSON value", fmt.Sprintf("%T", v))
}

func finite(path string, f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, core.InvalidValue(pathOr(path), strconv.FormatFloat(f, 'g', -1, 64))
	}
	return f, nil
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexKey(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func pathOr(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
