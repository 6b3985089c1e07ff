package errors

import (
	stderrors "errors"
	"testing"
)

func TestDataErrorUnwrap(t *testing.T) {
	inner := stderrors.New("disk gone")
	err := NewDataError("candles", "BTCUSDT", "query failed", inner)
	if !Is(err, inner) {
		t.Error("wrapped cause not found in chain")
	}

	// With no cause the error still reads as data-not-found.
	bare := NewDataError("candles", "BTCUSDT", "series absent", nil)
	if !Is(bare, ErrDataNotFound) {
		t.Error("bare DataError does not unwrap to ErrDataNotFound")
	}
}

func TestExchangeErrorChain(t *testing.T) {
	err := NewExchangeError("get_price", "BTCUSDT",
		Wrap(ErrExchangeUnavailable, "dial tcp: timeout"))
	if !Is(err, ErrExchangeUnavailable) {
		t.Error("ErrExchangeUnavailable not found through the wrap chain")
	}

	var exErr *ExchangeError
	if !As(err, &exErr) || exErr.Operation != "get_price" {
		t.Errorf("As failed: %+v", exErr)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("leverage", 200, "must be between 1 and 125")
	want := "validation error: leverage (200): must be between 1 and 125"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestReconciliationError(t *testing.T) {
	cause := stderrors.New("order rejected")
	err := NewReconciliationError("BTCUSDT", "close", cause)
	if !Is(err, cause) {
		t.Error("cause not found in chain")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
