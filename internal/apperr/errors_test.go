package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Forbidden("nope"), http.StatusForbidden},
		{Conflict("state"), http.StatusBadRequest},
		{InvalidSignature("sig"), http.StatusBadRequest},
		{Gateway("upstream", errors.New("boom")), http.StatusInternalServerError},
		{Configuration("missing key"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("cancel booking: %w", Conflict("Cannot cancel a confirmed booking"))

	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, "Cannot cancel a confirmed booking", PublicMessage(err))
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	err := fmt.Errorf("query failed: %w", errors.New("pq: connection refused"))

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "Internal server error", PublicMessage(err))
}

func TestGatewayErrorKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Gateway("Could not create order", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Could not create order", PublicMessage(err))
}
