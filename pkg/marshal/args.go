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

// Args is the positional argument list of an inbound call.
type Args []any

func (a Args) at(i int) (any, bool) {
	if i < 0 || i >= len(a) {
		return nil, false
	}
	return a[i], true
}

func (a Args) Len() int { return len(a) }

// Arg reads the required argument at position i, reporting errors under name.
func Arg[T Value](a Args, i int, name string) (T, error) {
	raw, ok := a.at(i)
	return required[T](name, raw, ok)
}

func OptionalArg[T Value](a Args, i int, name string) (*T, error) {
	raw, ok := a.at(i)
	return optional[T](name, raw, ok)
}

func ArgInt(a Args, i int, name string) (int, error) {
	f, err := Arg[float64](a, i, name)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ArgMap reads a map argument and normalizes it.
func ArgMap(a Args, i int, name string) (map[string]any, error) {
	m, err := Arg[map[string]any](a, i, name)
	if err != nil {
		return nil, err
	}
	return normalizeMap(name, m)
}

func OptionalArgMap(a Args, i int, name string) (map[string]any, error) {
	m, err := OptionalArg[map[string]any](a, i, name)
	if err != nil || m == nil {
		return nil, err
	}
	return normalizeMap(name, *m)
}
