package entity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransferOutcome is the closed set of classified transfer results.
type TransferOutcome string

const (
	OutcomeSuccess          TransferOutcome = "success"
	OutcomeTimeout          TransferOutcome = "timeout"
	OutcomeConnectionFailed TransferOutcome = "connection failed"
	OutcomeTLSFailure       TransferOutcome = "SSL/certificate issue"
	OutcomeRequestFailed    TransferOutcome = "request failed"
	OutcomeUnauthorized     TransferOutcome = "unauthorized"
	OutcomeForbidden        TransferOutcome = "forbidden"
	OutcomeNotFound         TransferOutcome = "not found"
	OutcomeFileTooLarge     TransferOutcome = "file too large"
	OutcomeRateLimited      TransferOutcome = "rate limited"
	OutcomeServerError      TransferOutcome = "server error"
	OutcomeHTTPError        TransferOutcome = "http error"
)

// TransferResult carries a classified outcome plus an optional detail
// payload (e.g. the raw HTTP status for OutcomeHTTPError).
type TransferResult struct {
	Outcome TransferOutcome `json:"outcome"`
	Detail  string          `json:"detail,omitempty"`
}

func (r TransferResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Status renders the result as the status string persisted on the record:
// "success", or "error: <classification>".
func (r TransferResult) Status() string {
	if r.Outcome == OutcomeSuccess {
		return "success"
	}
	if r.Detail != "" {
		return "error: " + r.Detail
	}
	return "error: " + string(r.Outcome)
}

// ClassifyHTTPStatus maps an HTTP response status to a transfer result.
// Any 2xx is a success; recognized failure codes get their own outcome,
// everything else is a generic "HTTP <code>".
func ClassifyHTTPStatus(code int) TransferResult {
	switch {
	case code >= 200 && code < 300:
		return TransferResult{Outcome: OutcomeSuccess}
	case code == 401:
		return TransferResult{Outcome: OutcomeUnauthorized}
	case code == 403:
		return TransferResult{Outcome: OutcomeForbidden}
	case code == 404:
		return TransferResult{Outcome: OutcomeNotFound}
	case code == 413:
		return TransferResult{Outcome: OutcomeFileTooLarge}
	case code == 429:
		return TransferResult{Outcome: OutcomeRateLimited}
	case code >= 500:
		return TransferResult{Outcome: OutcomeServerError}
	default:
		return TransferResult{Outcome: OutcomeHTTPError, Detail: fmt.Sprintf("HTTP %d", code)}
	}
}

// ClassifyTransportError maps a transport-level error (no HTTP response)
// to a transfer result.
func ClassifyTransportError(err error) TransferResult {
	if err == nil {
		return TransferResult{Outcome: OutcomeSuccess}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return TransferResult{Outcome: OutcomeTimeout}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return TransferResult{Outcome: OutcomeTimeout}
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable"):
		return TransferResult{Outcome: OutcomeConnectionFailed}
	case strings.Contains(msg, "certificate") ||
		strings.Contains(msg, "x509") ||
		strings.Contains(msg, "tls"):
		return TransferResult{Outcome: OutcomeTLSFailure}
	default:
		return TransferResult{Outcome: OutcomeRequestFailed}
	}
}
