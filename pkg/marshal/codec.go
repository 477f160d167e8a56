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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// EncodeText normalizes v and renders it as JSON text. Map keys are sorted,
// integral doubles are written as integer literals.
func EncodeText(v any) (string, error) {
	n, err := Normalize(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n); err != nil {
		return "", fmt.Errorf("encode json text: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeText parses JSON text into a canonical value.
func DecodeText(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("decode json text: %w", err)
	}
	return v, nil
}

// DecodeMap parses JSON text whose root must be an object.
func DecodeMap(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json text: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, core.InvalidType("value", "Map", TypeName(v))
	}
	return m, nil
}
