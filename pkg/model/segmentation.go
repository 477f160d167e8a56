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

package model

import (
	"fmt"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

// Segment is a single segmentation record, e.g. {"id": "...", "segmentation_id": "..."}.
type Segment map[string]string

// SegmentationCallback is a registered segmentation data listener.
type SegmentationCallback struct {
	InstanceID       string
	ExposingCategory string
	IncludeFirstLoad bool
}

func (c SegmentationCallback) ToMap() map[string]any {
	return map[string]any{
		"instanceId":       c.InstanceID,
		"exposingCategory": c.ExposingCategory,
		"includeFirstLoad": c.IncludeFirstLoad,
	}
}

type SegmentationUpdate struct {
	CallbackID string
	Data       []Segment
}

func SegmentationUpdateFromMap(m map[string]any) (*SegmentationUpdate, error) {
	callbackID, err := marshal.Required[string](m, "callbackId")
	if err != nil {
		return nil, err
	}
	list, err := marshal.Required[[]any](m, "data")
	if err != nil {
		return nil, err
	}
	segments, err := segmentsFrom("data", list)
	if err != nil {
		return nil, err
	}
	return &SegmentationUpdate{CallbackID: callbackID, Data: segments}, nil
}

// SegmentsFromList converts a getSegments reply.
func SegmentsFromList(list []any) ([]Segment, error) {
	return segmentsFrom("segments", list)
}

func segmentsFrom(key string, list []any) ([]Segment, error) {
	out := make([]Segment, 0, len(list))
	for i, item := range list {
		field := fmt.Sprintf("%s[%d]", key, i)
		if item == nil {
			return nil, core.MissingProperty(field)
		}
		s, err := marshal.StringMap(field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, Segment(s))
	}
	return out, nil
}

func (u SegmentationUpdate) ToMap() map[string]any {
	return map[string]any{
		"callbackId": u.CallbackID,
		"data":       segmentList(u.Data),
	}
}

func segmentList(segments []Segment) []any {
	out := make([]any, len(segments))
	for i, s := range segments {
		m := make(map[string]any, len(s))
		for k, v := range s {
			m[k] = v
		}
		out[i] = m
	}
	return out
}

// SegmentsToList renders segments for a bridge reply.
func SegmentsToList(segments []Segment) []any {
	return segmentList(segments)
}
