// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Class groups summarization failures by what the operator should do.
type Class string

const (
	ClassAuth    Class = "auth"
	ClassQuota   Class = "quota"
	ClassTimeout Class = "timeout"
	ClassNetwork Class = "network"
	ClassOther   Class = "other"
)

// Error is a classified summarization failure.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return "summarization " + string(e.Class) + " error: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Hint is the operator-facing message for the failure class.
func (e *Error) Hint() string {
	switch e.Class {
	case ClassQuota:
		return "quota exceeded, check the summarization service billing plan"
	case ClassAuth:
		return "invalid API key, check the summarization service credential"
	case ClassTimeout:
		return "request timed out, try again later"
	case ClassNetwork:
		return "connection error, check network access to the summarization service"
	default:
		return "summarization failed"
	}
}

// Classify wraps err in an *Error. An err that already is one is returned
// unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Class: classOf(err), Err: err}
}

func classOf(err error) Class {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit"):
		return ClassQuota
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "incorrect api key") || strings.Contains(msg, "unauthorized"):
		return ClassAuth
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return ClassTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ClassNetwork
	}
	if strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "no such host") {
		return ClassNetwork
	}
	return ClassOther
}
