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
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
)

const DefaultRecommendationSize = 10

type PurchasedItem struct {
	Value         float64
	Currency      string
	PaymentSystem string
	ProductID     string
	ProductTitle  string
	Receipt       *string
}

func PurchasedItemFromMap(m map[string]any) (*PurchasedItem, error) {
	var (
		p   PurchasedItem
		err error
	)
	if p.Value, err = marshal.Required[float64](m, "brutto"); err != nil {
		return nil, err
	}
	if p.Currency, err = marshal.Required[string](m, "currency"); err != nil {
		return nil, err
	}
	if p.PaymentSystem, err = marshal.Required[string](m, "payment_system"); err != nil {
		return nil, err
	}
	if p.ProductID, err = marshal.Required[string](m, "item_id"); err != nil {
		return nil, err
	}
	if p.ProductTitle, err = marshal.Required[string](m, "product_title"); err != nil {
		return nil, err
	}
	if p.Receipt, err = marshal.Optional[string](m, "receipt"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p PurchasedItem) ToMap() map[string]any {
	out := map[string]any{
		"brutto":         p.Value,
		"currency":       p.Currency,
		"payment_system": p.PaymentSystem,
		"item_id":        p.ProductID,
		"product_title":  p.ProductTitle,
	}
	put(out, "receipt", p.Receipt)
	return out
}

type RecommendationOptions struct {
	ID                         string
	FillWithRandom             bool
	Size                       int
	Items                      map[string]string
	NoTrack                    *bool
	CatalogAttributesWhitelist []string
}

func RecommendationOptionsFromMap(m map[string]any) (*RecommendationOptions, error) {
	var (
		o   = RecommendationOptions{Size: DefaultRecommendationSize}
		err error
	)
	if o.ID, err = marshal.Required[string](m, "id"); err != nil {
		return nil, err
	}
	if o.FillWithRandom, err = marshal.Required[bool](m, "fillWithRandom"); err != nil {
		return nil, err
	}
	size, err := marshal.OptionalInt(m, "size")
	if err != nil {
		return nil, err
	}
	if size != nil {
		o.Size = *size
	}
	if o.Items, err = marshal.OptionalStringMap(m, "items"); err != nil {
		return nil, err
	}
	if o.NoTrack, err = marshal.Optional[bool](m, "noTrack"); err != nil {
		return nil, err
	}
	if o.CatalogAttributesWhitelist, err = marshal.OptionalStrings(m, "catalogAttributesWhitelist"); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o RecommendationOptions) ToMap() map[string]any {
	out := map[string]any{
		"id":             o.ID,
		"fillWithRandom": o.FillWithRandom,
		"size":           float64(o.Size),
	}
	if o.Items != nil {
		items := make(map[string]any, len(o.Items))
		for k, v := range o.Items {
			items[k] = v
		}
		out["items"] = items
	}
	put(out, "noTrack", o.NoTrack)
	if o.CatalogAttributesWhitelist != nil {
		attrs := make([]any, len(o.CatalogAttributesWhitelist))
		for i, a := range o.CatalogAttributesWhitelist {
			attrs[i] = a
		}
		out["catalogAttributesWhitelist"] = attrs
	}
	return out
}

type Recommendation struct {
	EngineName              string
	ItemID                  string
	RecommendationID        string
	RecommendationVariantID string
	Data                    map[string]any
}

func RecommendationFromMap(m map[string]any) (*Recommendation, error) {
	var (
		r   Recommendation
		err error
	)
	if r.EngineName, err = marshal.Required[string](m, "engineName"); err != nil {
		return nil, err
	}
	if r.ItemID, err = marshal.Required[string](m, "itemId"); err != nil {
		return nil, err
	}
	if r.RecommendationID, err = marshal.Required[string](m, "recommendationId"); err != nil {
		return nil, err
	}
	variant, err := marshal.Optional[string](m, "recommendationVariantId")
	if err != nil {
		return nil, err
	}
	if variant != nil {
		r.RecommendationVariantID = *variant
	}
	if r.Data, err = optionalJSON(m, "data"); err != nil {
		return nil, err
	}
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	return &r, nil
}

func (r Recommendation) ToMap() map[string]any {
	return map[string]any{
		"engineName":              r.EngineName,
		"itemId":                  r.ItemID,
		"recommendationId":        r.RecommendationID,
		"recommendationVariantId": r.RecommendationVariantID,
		"data":                    r.Data,
	}
}
