package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

// TestHTTPStatus tests the code to status mapping used by the RPC endpoint.
func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		SF_NOT_FOUND:  http.StatusNotFound,
		SF_VALIDATION: http.StatusInternalServerError,
		SF_UPSTREAM:   http.StatusInternalServerError,
		SF_INTERNAL:   http.StatusInternalServerError,
		SF_BAD_METHOD: http.StatusMethodNotAllowed,
		SF_RATE_LIMIT: http.StatusTooManyRequests,
	}
	for code, want := range cases {
		if got := New(code, "x").HTTPStatus; got != want {
			t.Errorf("New(%s).HTTPStatus = %d, want %d", code, got, want)
		}
	}
}

// TestFrom tests classification of arbitrary errors.
func TestFrom(t *testing.T) {
	upstream := Wrap(SF_UPSTREAM, "Failed to fetch products", stderrors.New("dial tcp: refused"))
	if got := From(upstream); got.Code != SF_UPSTREAM || got.Message != "Failed to fetch products" {
		t.Errorf("From(upstream) = %+v", got)
	}

	if got := From(stderrors.New("boom")); got.Code != SF_INTERNAL || got.Message != "boom" {
		t.Errorf("From(plain) = %+v", got)
	}

	if got := From(stderrors.New("")); got.Message != DefaultMessage {
		t.Errorf("From(empty).Message = %q, want %q", got.Message, DefaultMessage)
	}
}

// TestWrapKeepsCause tests that the cause stays reachable through errors.Is.
func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(SF_UPSTREAM, "Failed to fetch user", cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}
