package domain

import "errors"

// Error kinds for the fetch/assess pipeline. Callers wrap these with
// fmt.Errorf("...: %w", Err...) and check with errors.Is. None of them
// is fatal to the process: every failure degrades to a user-visible
// message and leaves the session usable.
var (
	// ErrValidation: a local precondition failed; no network call was made.
	ErrValidation = errors.New("invalid request parameters")

	// ErrTransport: the network call itself failed or timed out.
	ErrTransport = errors.New("transport failure")

	// ErrProvider: the remote service rejected the request semantically
	// (bad key, bad area), possibly inside an HTTP 200 body.
	ErrProvider = errors.New("provider rejected request")

	// ErrParse: the response body was not the expected tabular format.
	ErrParse = errors.New("malformed provider response")

	// ErrInference: the reasoning service call failed before a reply
	// was received. A malformed reply body is not an ErrInference; the
	// raw text is surfaced instead.
	ErrInference = errors.New("inference failure")
)
