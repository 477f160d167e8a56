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
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

type ContentBlockActionType string

const (
	ContentBlockBrowser  ContentBlockActionType = "browser"
	ContentBlockDeeplink ContentBlockActionType = "deeplink"
	ContentBlockClose    ContentBlockActionType = "close"
)

type ContentBlockAction struct {
	Type ContentBlockActionType
	Name *string
	URL  *string
}

func ContentBlockActionFromMap(m map[string]any) (*ContentBlockAction, error) {
	rawType, err := marshal.Required[string](m, "type")
	if err != nil {
		return nil, err
	}
	actionType := ContentBlockActionType(rawType)
	switch actionType {
	case ContentBlockBrowser, ContentBlockDeeplink, ContentBlockClose:
	default:
		return nil, core.InvalidValue("type", rawType)
	}
	name, err := marshal.Optional[string](m, "name")
	if err != nil {
		return nil, err
	}
	url, err := marshal.Optional[string](m, "url")
	if err != nil {
		return nil, err
	}
	return &ContentBlockAction{Type: actionType, Name: name, URL: url}, nil
}

func (a ContentBlockAction) ToMap() map[string]any {
	out := map[string]any{"type": string(a.Type)}
	put(out, "name", a.Name)
	put(out, "url", a.URL)
	return out
}

// ContentBlock is an in-app content block shown inside a placeholder.
type ContentBlock struct {
	ID                      string
	Name                    string
	DateFilter              map[string]any
	Frequency               *string
	LoadPriority            *int
	ConsentCategoryTracking *string
	ContentType             *string
	Content                 map[string]any
	Placeholders            []string
}

func ContentBlockFromMap(m map[string]any) (*ContentBlock, error) {
	var (
		b   ContentBlock
		err error
	)
	if b.ID, err = marshal.Required[string](m, "id"); err != nil {
		return nil, err
	}
	if b.Name, err = marshal.Required[string](m, "name"); err != nil {
		return nil, err
	}
	if b.DateFilter, err = optionalJSON(m, "date_filter"); err != nil {
		return nil, err
	}
	if b.Frequency, err = marshal.Optional[string](m, "frequency"); err != nil {
		return nil, err
	}
	if b.LoadPriority, err = marshal.OptionalInt(m, "load_priority"); err != nil {
		return nil, err
	}
	if b.ConsentCategoryTracking, err = marshal.Optional[string](m, "consentCategoryTracking"); err != nil {
		return nil, err
	}
	if b.ContentType, err = marshal.Optional[string](m, "content_type"); err != nil {
		return nil, err
	}
	if b.Content, err = optionalJSON(m, "content"); err != nil {
		return nil, err
	}
	if b.Placeholders, err = marshal.OptionalStrings(m, "placeholders"); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b ContentBlock) ToMap() map[string]any {
	out := map[string]any{"id": b.ID, "name": b.Name}
	putMap(out, "date_filter", b.DateFilter)
	put(out, "frequency", b.Frequency)
	putInt(out, "load_priority", b.LoadPriority)
	put(out, "consentCategoryTracking", b.ConsentCategoryTracking)
	put(out, "content_type", b.ContentType)
	putMap(out, "content", b.Content)
	if b.Placeholders != nil {
		ids := make([]any, len(b.Placeholders))
		for i, id := range b.Placeholders {
			ids[i] = id
		}
		out["placeholders"] = ids
	}
	return out
}
