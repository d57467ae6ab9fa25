package domain

import (
	"errors"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("candles", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "candles: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "candles: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("accounts", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("orderbook", baseErr)
		fatal := NewFatalNetworkError("accounts", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}
		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}
		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "trading.assets", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [trading.assets]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestDecisionError(t *testing.T) {
	err := &DecisionError{Symbol: "XRP", Raw: "not json", Err: ErrMalformedDecision}

	if !errors.Is(err, ErrMalformedDecision) {
		t.Error("DecisionError should unwrap to ErrMalformedDecision")
	}
	if err.Error() != "decision [XRP]: malformed decision" {
		t.Errorf("unexpected message %q", err.Error())
	}

	var de *DecisionError
	if !errors.As(error(err), &de) || de.Raw != "not json" {
		t.Error("errors.As should expose the raw text")
	}
}
