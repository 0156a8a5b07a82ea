/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorHandler is the message shape BaSyx services return for failed requests.
// The mirror API uses it for its own error bodies.
type ErrorHandler struct {
	MessageType   string `json:"messageType"`
	Text          string `json:"text"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// NewErrorHandler builds an ErrorHandler message stamped with the current time.
func NewErrorHandler(messageType string, text error, code string, correlationID string) *ErrorHandler {
	return &ErrorHandler{
		MessageType:   messageType,
		Text:          text.Error(),
		Code:          code,
		CorrelationID: correlationID,
		Timestamp:     GetCurrentTimestamp(),
	}
}

const (
	prefixNotFound       = "404 Not Found: "
	prefixBadRequest     = "400 Bad Request: "
	prefixConflict       = "409 Conflict: "
	prefixInternal       = "500 Internal Server Error: "
	prefixTransport      = "Transport Failure: "
	prefixProtocol       = "Protocol Failure: "
	prefixNoOperation    = "No Matching Operation: "
	prefixDeserialize    = "Deserialization Failure: "
	prefixCanceled       = "Canceled: "
	prefixInvalidRecord  = "Invalid Connection Record: "
	prefixInvalidBaseURI = "Invalid Base URI: "
)

func NewErrNotFound(elementID string) error {
	return errors.New(prefixNotFound + elementID)
}

func NewErrBadRequest(message string) error {
	return errors.New(prefixBadRequest + message)
}

func NewErrConflict(message string) error {
	return errors.New(prefixConflict + message)
}

func NewInternalServerError(message string) error {
	return errors.New(prefixInternal + message)
}

// NewErrTransport wraps a failure below HTTP (refused connection, timeout,
// broken stream) for the given URI.
func NewErrTransport(uri string, err error) error {
	return fmt.Errorf("%s%s: %w", prefixTransport, uri, err)
}

// NewErrProtocol reports a non-2xx status for a primary operation.
func NewErrProtocol(uri string, status int) error {
	return fmt.Errorf("%s%s returned status %d", prefixProtocol, uri, status)
}

// NewErrNoOperation reports a location that matches no known endpoint shape.
func NewErrNoOperation(location string) error {
	return errors.New(prefixNoOperation + location)
}

func NewErrDeserialize(what string, err error) error {
	return fmt.Errorf("%s%s: %w", prefixDeserialize, what, err)
}

func NewErrCanceled(phase string, err error) error {
	return fmt.Errorf("%s%s: %w", prefixCanceled, phase, err)
}

func NewErrInvalidRecord(message string) error {
	return errors.New(prefixInvalidRecord + message)
}

func NewErrInvalidBaseURI(message string) error {
	return errors.New(prefixInvalidBaseURI + message)
}

func hasPrefix(err error, prefix string) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefix)
}

func IsErrNotFound(err error) bool { return hasPrefix(err, prefixNotFound) }

func IsErrBadRequest(err error) bool { return hasPrefix(err, prefixBadRequest) }

func IsErrConflict(err error) bool { return hasPrefix(err, prefixConflict) }

func IsInternalServerError(err error) bool { return hasPrefix(err, prefixInternal) }

func IsErrTransport(err error) bool { return hasPrefix(err, prefixTransport) }

func IsErrProtocol(err error) bool { return hasPrefix(err, prefixProtocol) }

func IsErrNoOperation(err error) bool { return hasPrefix(err, prefixNoOperation) }

func IsErrDeserialize(err error) bool { return hasPrefix(err, prefixDeserialize) }

func IsErrCanceled(err error) bool { return hasPrefix(err, prefixCanceled) }

func IsErrInvalidRecord(err error) bool { return hasPrefix(err, prefixInvalidRecord) }

func IsErrInvalidBaseURI(err error) bool { return hasPrefix(err, prefixInvalidBaseURI) }

// IsErrProtocolStatus reports whether err is a protocol failure with the given status.
func IsErrProtocolStatus(err error, status int) bool {
	return IsErrProtocol(err) && strings.HasSuffix(err.Error(), fmt.Sprintf("returned status %d", status))
}
