package client_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/apiward/apiward/internal/client"
)

func TestStatusErrorMessage(t *testing.T) {
	err := &client.StatusError{StatusCode: 404}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("message missing status: %q", err.Error())
	}

	err = &client.StatusError{StatusCode: 500, Body: "boom"}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("message missing body: %q", err.Error())
	}
}

func TestRetryExhaustedErrorUnwrap(t *testing.T) {
	inner := &client.StatusError{StatusCode: 503}
	err := &client.RetryExhaustedError{
		Attempts: 5,
		Elapsed:  31 * time.Second,
		LastErr:  inner,
	}

	var se *client.StatusError
	if !errors.As(err, &se) {
		t.Fatal("expected RetryExhaustedError to unwrap to StatusError")
	}
	if se.StatusCode != 503 {
		t.Errorf("unwrapped status = %d, want 503", se.StatusCode)
	}
	if !strings.Contains(err.Error(), "5 attempts") {
		t.Errorf("message missing attempt count: %q", err.Error())
	}
}
