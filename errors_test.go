package dbmcp

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	cases := []struct {
		err  error
		want Kind
	}{
		{validationError("bad statement"), KindValidation},
		{connectionError(cause, "cannot connect"), KindConnection},
		{executionError(cause, "query failed"), KindExecution},
		{notFoundError("table not found: main.x"), KindNotFound},
		{fmt.Errorf("wrapped: %w", executionError(cause, "query failed")), KindExecution},
		{cause, Kind("")},
		{nil, Kind("")},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: refused")
	err := connectionError(cause, "failed to connect to database")

	if err.Error() != "failed to connect to database: dial tcp: refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}

	bare := validationError("empty statement")
	if bare.Error() != "empty statement" {
		t.Fatalf("unexpected message: %s", bare.Error())
	}
	if bare.Unwrap() != nil {
		t.Fatal("expected no wrapped cause")
	}
}
