package scpi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayErrorMessage(t *testing.T) {
	err := &GatewayError{Status: -2, Message: "bad address"}
	assert.Equal(t, "scpi: gateway status -2: bad address", err.Error())
}

func TestCommErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CommError{Op: "open", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "open")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCommErrPassesProtocolErrorsThrough(t *testing.T) {
	// Gateway and framing errors keep their identity instead of being
	// re-wrapped as communication failures.
	ge := &GatewayError{Status: -2, Message: "bad address"}
	err := commErr("write", ge)
	var out *GatewayError
	require.ErrorAs(t, err, &out)
	var ce *CommError
	assert.False(t, errors.As(err, &ce))

	err = commErr("read", ErrMalformedFrame)
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.False(t, errors.As(err, &ce))

	// Plain transport failures do get wrapped.
	err = commErr("read", errors.New("timeout"))
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "read", ce.Op)

	// Already-wrapped errors are not double-wrapped.
	err = commErr("write", err)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "read", ce.Op)

	// nil stays nil.
	assert.NoError(t, commErr("write", nil))
}
