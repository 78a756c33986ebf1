package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:             {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:           {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeForbidden:              {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:               {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:               {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeStateConflict:          {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeIdempotency:            {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeRateLimit:              {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
		CodeInternal:               {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:             {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodeInvalidGroup:           {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "seller group is not eligible for delivery quotes", DetailsAllowed: true},
		CodeInvalidBid:             {HTTPStatus: http.StatusBadRequest, PublicMessage: "invalid delivery quote", DetailsAllowed: true},
		CodeRequestNotOpen:         {HTTPStatus: http.StatusConflict, PublicMessage: RefreshMessage},
		CodeQuoteNoLongerValid:     {HTTPStatus: http.StatusConflict, PublicMessage: RefreshMessage},
		CodeInvalidTransition:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "order status change not allowed", DetailsAllowed: true},
		CodeIncompleteConfirmation: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "delivery confirmation incomplete", DetailsAllowed: true},
	}

	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, want, MetadataFor(code))
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestRaceLossCodesShareRefreshHint(t *testing.T) {
	for _, code := range []Code{CodeRequestNotOpen, CodeQuoteNoLongerValid} {
		meta := MetadataFor(code)
		assert.False(t, meta.Retryable, code)
		assert.False(t, meta.DetailsAllowed, code)
		assert.Equal(t, RefreshMessage, meta.PublicMessage, code)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeInvalidBid, "delivery fee must be positive")
	assert.Equal(t, CodeInvalidBid, base.Code())
	assert.Equal(t, "delivery fee must be positive", base.Message())
	assert.Equal(t, "INVALID_BID: delivery fee must be positive", base.Error())
	assert.Nil(t, base.Details())

	assert.Same(t, base, base.WithDetails(map[string]any{"field": "deliveryFee"}))
	assert.Equal(t, map[string]any{"field": "deliveryFee"}, base.Details())

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "redis unavailable")
	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeDependency, wrapped.Code())

	assert.Nil(t, Wrap(CodeConflict, nil, "no cause").Unwrap())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Empty(t, e.Error())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("ignored"))
	assert.NoError(t, e.Unwrap())
}

func TestAsAndIsCodeFollowWrappedChain(t *testing.T) {
	inner := New(CodeQuoteNoLongerValid, "quote already accepted")
	outer := fmt.Errorf("accept quote: %w", inner)

	assert.Same(t, inner, As(outer))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.True(t, IsCode(outer, CodeQuoteNoLongerValid))
	assert.False(t, IsCode(outer, CodeRequestNotOpen))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeInvalidTransition, "cannot move order from %s to %s", "confirmed", "delivered")
	assert.Equal(t, "INVALID_TRANSITION: cannot move order from confirmed to delivered", err.Error())
	assert.Nil(t, err.Unwrap())
}
