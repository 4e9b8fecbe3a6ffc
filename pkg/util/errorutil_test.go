package util

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewForbidden("nope")
	wrapped := fmt.Errorf("handler: %w", original)

	de := ToDomainError(wrapped)
	if de.Code != "FORBIDDEN" || de.HTTPStatus != http.StatusForbidden {
		t.Fatalf("wrapped domain error must survive conversion: %+v", de)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	de := ToDomainError(fmt.Errorf("load ticket: %w", pgx.ErrNoRows))
	if de.Code != "NOT_FOUND" || de.HTTPStatus != http.StatusNotFound {
		t.Fatalf("pgx.ErrNoRows must map to NOT_FOUND: %+v", de)
	}
}

func TestToDomainErrorMapsNetFailure(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	de := ToDomainError(netErr)
	if de.Code != "STORE_UNAVAILABLE" || de.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("network failures must map to STORE_UNAVAILABLE: %+v", de)
	}
}

func TestToDomainErrorFallback(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	if de.Code != "INTERNAL_ERROR" || de.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown errors must map to INTERNAL_ERROR: %+v", de)
	}
	if ToDomainError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestHasCode(t *testing.T) {
	err := NewEditWindowExpired(map[string]any{"window_mins": 15})
	if !HasCode(err, "EDIT_WINDOW_EXPIRED") {
		t.Fatalf("expected EDIT_WINDOW_EXPIRED, got %v", err)
	}
	if HasCode(err, "FORBIDDEN") {
		t.Fatalf("code must not match FORBIDDEN")
	}
	if HasCode(nil, "FORBIDDEN") {
		t.Fatalf("nil carries no code")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewStoreUnavailable(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause must stay reachable through Unwrap")
	}
}
