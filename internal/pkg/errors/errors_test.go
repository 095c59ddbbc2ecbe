package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeBadInput, "invalid input"),
			want: "BAD_INPUT: invalid input",
		},
		{
			name: "with wrapped error",
			err:  Wrap(CodeInternal, "something failed", errors.New("underlying")),
			want: "INTERNAL: something failed: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeInternal, "wrapped", underlying)

	if unwrapped := err.Unwrap(); unwrapped != underlying {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlying)
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeInvariant, http.StatusBadRequest},
		{CodeBadInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test")
			if status := err.HTTPStatus(); status != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", status, tt.status)
			}
		})
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(CodeBadInput, "invalid").
		WithDetails(map[string]string{"field": "name"})

	if err.Details["field"] != "name" {
		t.Errorf("Details[field] = %s, want name", err.Details["field"])
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(CodeBadInput, "invalid").
		WithDetail("field", "name").
		WithDetail("reason", "required")

	if err.Details["field"] != "name" {
		t.Errorf("Details[field] = %s, want name", err.Details["field"])
	}

	if err.Details["reason"] != "required" {
		t.Errorf("Details[reason] = %s, want required", err.Details["reason"])
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvariantError", func(t *testing.T) {
		err := InvariantError("tenant id missing")
		if err.Code != CodeInvariant {
			t.Errorf("Code = %s, want %s", err.Code, CodeInvariant)
		}
	})

	t.Run("BadInputError", func(t *testing.T) {
		err := BadInputError("unknown tier")
		if err.Code != CodeBadInput {
			t.Errorf("Code = %s, want %s", err.Code, CodeBadInput)
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError("collection")
		if err.Code != CodeNotFound {
			t.Errorf("Code = %s, want %s", err.Code, CodeNotFound)
		}
		if err.Message != "collection not found" {
			t.Errorf("Message = %s, want 'collection not found'", err.Message)
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		underlying := errors.New("db error")
		err := InternalError("failed", underlying)
		if err.Code != CodeInternal {
			t.Errorf("Code = %s, want %s", err.Code, CodeInternal)
		}
		if err.Unwrap() != underlying {
			t.Error("Underlying error not preserved")
		}
	})

	t.Run("UnavailableError", func(t *testing.T) {
		err := UnavailableError("qdrant", errors.New("connection refused"))
		if err.Code != CodeUnavailable {
			t.Errorf("Code = %s, want %s", err.Code, CodeUnavailable)
		}
		if err.Message != "qdrant is unavailable" {
			t.Errorf("Message = %s, want 'qdrant is unavailable'", err.Message)
		}
		errDefault := UnavailableError("", nil)
		if errDefault.Message != "service unavailable" {
			t.Errorf("Default message = %s, want 'service unavailable'", errDefault.Message)
		}
	})

	t.Run("TimeoutErr", func(t *testing.T) {
		err := TimeoutErr("rerank")
		if err.Code != CodeTimeout {
			t.Errorf("Code = %s, want %s", err.Code, CodeTimeout)
		}
		if err.Message != "rerank timed out" {
			t.Errorf("Message = %s, want 'rerank timed out'", err.Message)
		}
		errDefault := TimeoutErr("")
		if errDefault.Message != "operation timed out" {
			t.Errorf("Default message = %s, want 'operation timed out'", errDefault.Message)
		}
	})

	t.Run("RateLimitedError", func(t *testing.T) {
		err := RateLimitedError(RateLimitKindBudget, 0)
		if err.Code != CodeRateLimited {
			t.Errorf("Code = %s, want %s", err.Code, CodeRateLimited)
		}
		kind, retryAfter, ok := IsRateLimited(err)
		if !ok || kind != RateLimitKindBudget || retryAfter != 0 {
			t.Errorf("IsRateLimited() = (%s, %v, %v), want (budget, 0, true)", kind, retryAfter, ok)
		}
	})
}

func TestIsNotFound(t *testing.T) {
	notFound := NotFoundError("test")
	other := BadInputError("test")

	if !IsNotFound(notFound) {
		t.Error("IsNotFound(NotFoundError) = false, want true")
	}

	if IsNotFound(other) {
		t.Error("IsNotFound(BadInputError) = true, want false")
	}

	if IsNotFound(errors.New("standard error")) {
		t.Error("IsNotFound(standard error) = true, want false")
	}
}

func TestIsInvariant(t *testing.T) {
	invariant := InvariantError("tenant id missing")
	other := NotFoundError("test")

	if !IsInvariant(invariant) {
		t.Error("IsInvariant(InvariantError) = false, want true")
	}

	if IsInvariant(other) {
		t.Error("IsInvariant(NotFoundError) = true, want false")
	}
}
