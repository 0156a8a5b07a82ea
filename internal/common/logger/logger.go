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

// Package logger provides component-prefixed logging for the fetch/sync engine.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger writes prefixed log lines for one component.
type Logger struct {
	l *log.Logger
}

// New creates a Logger writing to stderr with a "[component] " prefix.
func New(component string) *Logger {
	return NewWithWriter(component, os.Stderr)
}

// NewWithWriter creates a Logger writing to w. Tests use it to capture output.
func NewWithWriter(component string, w io.Writer) *Logger {
	return &Logger{l: log.New(w, "["+component+"] ", log.LstdFlags|log.Lmsgprefix)}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("", io.Discard)
}

// LogError logs an error with context information. Nil errors are ignored.
func (lg *Logger) LogError(context string, err error) {
	if err != nil {
		lg.l.Printf("ERROR: %s: %v", context, err)
	}
}

// LogInfo logs an informational message.
func (lg *Logger) LogInfo(message string) {
	lg.l.Printf("INFO: %s", message)
}

// LogWarning logs a warning message.
func (lg *Logger) LogWarning(message string) {
	lg.l.Printf("WARN: %s", message)
}

// LogDebug logs a debug message.
func (lg *Logger) LogDebug(message string) {
	lg.l.Printf("DEBUG: %s", message)
}

func (lg *Logger) Errorf(format string, args ...any) {
	lg.l.Printf("ERROR: %s", fmt.Sprintf(format, args...))
}

func (lg *Logger) Infof(format string, args ...any) {
	lg.l.Printf("INFO: %s", fmt.Sprintf(format, args...))
}

func (lg *Logger) Warnf(format string, args ...any) {
	lg.l.Printf("WARN: %s", fmt.Sprintf(format, args...))
}

func (lg *Logger) Debugf(format string, args ...any) {
	lg.l.Printf("DEBUG: %s", fmt.Sprintf(format, args...))
}
