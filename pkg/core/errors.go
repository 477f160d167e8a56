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

package core

import (
	"errors"
	"fmt"
)

// ErrorCode identifies this SDK as the source of a rejected call.
const ErrorCode = "EngagementSDK"

var (
	ErrMissingProperty      = errors.New("missing property")
	ErrInvalidType          = errors.New("invalid type")
	ErrInvalidValue         = errors.New("invalid value")
	ErrInvalidEventType     = errors.New("invalid event type")
	ErrInvalidProject       = errors.New("invalid project definition")
	ErrNotConfigured        = errors.New("SDK is not configured. Call configure() before calling functions of the SDK")
	ErrAlreadyConfigured    = errors.New("SDK was already configured.")
	ErrOperationUnavailable = errors.New("operation unavailable")
	ErrInvalidUsage         = errors.New("invalid usage")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUnknownMethod        = errors.New("unknown method")
	ErrInvalidData          = errors.New("invalid data")
	ErrFlushModeNotPeriodic = errors.New("Flush mode is not periodic.")

	ErrSessionNotFound     = errors.New("session not found")
	ErrEndpointUnavailable = errors.New("endpoint unavailable")
	ErrNoEndpoints         = errors.New("no endpoints registered")
	ErrInvalidConfig       = errors.New("invalid host configuration")
)

// Error is a user-facing failure. Message is returned verbatim to the caller,
// Kind is one of the sentinels above.
type Error struct {
	Kind     error
	Field    string
	Expected string
	Actual   string
	Value    string
	Message  string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func MissingProperty(field string) error {
	return &Error{
		Kind:    ErrMissingProperty,
		Field:   field,
		Message: fmt.Sprintf("Property '%s' cannot be null.", field),
	}
}

func InvalidType(field, expected, actual string) error {
	return &Error{
		Kind:     ErrInvalidType,
		Field:    field,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("Incorrect type for key '%s'. Expected %s got %s", field, expected, actual),
	}
}

func InvalidValue(field, value string) error {
	return &Error{
		Kind:    ErrInvalidValue,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("Incorrect value '%s' for key %s.", value, field),
	}
}

func Unavailable(operation string, platform Platform) error {
	return &Error{
		Kind:    ErrOperationUnavailable,
		Field:   operation,
		Message: fmt.Sprintf("%s is not available for %s platform.", operation, platform),
	}
}

func FetchFailed(reason string) error {
	return &Error{
		Kind:    ErrFetchFailed,
		Message: "Data fetching failed: " + reason,
	}
}

// Errorf builds an Error of the given kind with a custom message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Reject converts any error into the rejection triple. No stack or wrapping
// chain is exposed, only the message of the outermost error.
func Reject(err error) *Rejection {
	rej := &Rejection{Code: ErrorCode, Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		payload := map[string]any{}
		if e.Field != "" {
			payload["field"] = e.Field
		}
		if e.Expected != "" {
			payload["expected"] = e.Expected
		}
		if e.Actual != "" {
			payload["actual"] = e.Actual
		}
		if e.Value != "" {
			payload["value"] = e.Value
		}
		if len(payload) > 0 {
			rej.Payload = payload
		}
	}
	return rej
}
