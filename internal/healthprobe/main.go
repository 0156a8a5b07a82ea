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

// Package main is the health probe of the mirror service container image.
// It accepts the wget arguments used by container health checks and reports
// the service healthy only when /health answers {"status":"UP"}.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

const (
	defaultPort    = "5080"
	defaultTimeout = 5 * time.Second
)

type probeOptions struct {
	url     string
	quiet   bool
	spider  bool
	output  string
	debug   bool
	tries   int
	timeout time.Duration
}

func newProbeCmd(name string) (*cobra.Command, *probeOptions) {
	options := &probeOptions{}
	var timeoutSeconds int
	cmd := &cobra.Command{
		Use:           name + " [url]",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		// wget style invocations carry flags the probe has no use for
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		PreRunE: func(_ *cobra.Command, args []string) error {
			if timeoutSeconds <= 0 {
				return fmt.Errorf("HEALTHPROBE-PARSE-INVALIDTIMEOUT: %d", timeoutSeconds)
			}
			options.timeout = time.Duration(timeoutSeconds) * time.Second
			if len(args) == 1 {
				options.url = args[0]
			}
			if options.url == "" {
				options.url = buildDefaultHealthURL()
			}
			if name == "healthprobe" {
				options.quiet = true
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if options.debug {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "healthprobe url=%s timeout=%s\n", options.url, options.timeout)
			}
			return runProbe(*options, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&options.quiet, "quiet", "q", false, "no error output")
	f.BoolVar(&options.spider, "spider", false, "check without writing the body")
	f.BoolVar(&options.debug, "debug", false, "print the probed url")
	f.IntVar(&options.tries, "tries", 1, "attempts before giving up")
	f.StringVarP(&options.output, "output-document", "O", "-", "write the body to this file, - for stdout")
	f.IntVarP(&timeoutSeconds, "timeout", "T", int(defaultTimeout/time.Second), "timeout in seconds")
	return cmd, options
}

func main() {
	name := filepath.Base(os.Args[0])
	cmd, options := newProbeCmd(name)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		if !options.quiet {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func buildDefaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = defaultPort
	}
	contextPath := strings.TrimRight(os.Getenv("SERVER_CONTEXTPATH"), "/")
	if contextPath != "" && !strings.HasPrefix(contextPath, "/") {
		contextPath = "/" + contextPath
	}
	return fmt.Sprintf("http://127.0.0.1:%s%s/health", port, contextPath)
}

func runProbe(options probeOptions, stdout io.Writer) error {
	tries := options.tries
	if tries < 1 {
		tries = 1
	}
	var err error
	for i := 0; i < tries; i++ {
		if err = probeOnce(options, stdout); err == nil {
			return nil
		}
	}
	return err
}

func probeOnce(options probeOptions, stdout io.Writer) error {
	client := &http.Client{Timeout: options.timeout}

	response, err := client.Get(options.url)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-REQUESTFAILED: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HEALTHPROBE-RUN-UNHEALTHYSTATUS: %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-READFAILED: %w", err)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := common.Unmarshal(body, &status); err != nil || status.Status != "UP" {
		return fmt.Errorf("HEALTHPROBE-RUN-NOTUP: %s", strings.TrimSpace(string(body)))
	}

	if options.spider {
		return nil
	}
	if options.output == "-" || options.output == "" {
		if _, err := stdout.Write(body); err != nil {
			return fmt.Errorf("HEALTHPROBE-RUN-WRITESTDOUTFAILED: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(options.output, body, 0o600); err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-WRITEOUTPUTFAILED: %w", err)
	}
	return nil
}
