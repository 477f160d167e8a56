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

// Package model holds the value objects exchanged with the native SDK.
//
// Every XFromMap converter reads an untyped bridge map. Identity fields are
// required, optional fields stay nil when absent, and caller-defined JSON
// payloads are normalized without further typing. A converter returns
// (nil, nil) when its input is "not one of these" rather than malformed.
// Every model renders back to a bridge map through ToMap.
package model

import (
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

func put[T any](out map[string]any, key string, v *T) {
	if v != nil {
		out[key] = *v
	}
}

func putMap(out map[string]any, key string, v map[string]any) {
	if v != nil {
		out[key] = v
	}
}

func putInt(out map[string]any, key string, v *int) {
	if v != nil {
		out[key] = float64(*v)
	}
}

// optionalJSON reads an optional map field and normalizes it.
func optionalJSON(m map[string]any, key string) (map[string]any, error) {
	v, err := marshal.Optional[map[string]any](m, key)
	if err != nil || v == nil {
		return nil, err
	}
	return marshal.NormalizeMap(*v)
}

func blank(s *string) bool {
	return s == nil || *s == ""
}
