package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse_ConRole(t *testing.T) {
	tok, err := Generate(secret, "u-1", "almacenero", "epp-kardex-test", 60)
	require.NoError(t, err)

	userID, role, err := Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "almacenero", role)
}

func TestParse_ExpiradoOSecretIncorrecto(t *testing.T) {
	expired, err := Generate(secret, "u-1", "admin", "x", -1)
	require.NoError(t, err)
	_, _, err = Parse(secret, expired)
	assert.Error(t, err, "token expirado debe retornar error")

	tok, err := Generate(secret, "u-1", "admin", "x", 60)
	require.NoError(t, err)
	_, _, err = Parse("otro-secret", tok)
	assert.Error(t, err)

	_, err = Generate("", "u-1", "admin", "x", 60)
	assert.Error(t, err)
}

type payload struct {
	Kind     string `json:"kind"`
	Quantity int64  `json:"quantity"`
}

func TestProposal_RoundTrip(t *testing.T) {
	tok, err := SignProposal(secret, "epp-kardex", "p-123", "u-1", 15, payload{Kind: "OUT", Quantity: -3})
	require.NoError(t, err)

	var got payload
	id, actor, err := ParseProposal(secret, tok, &got)
	require.NoError(t, err)
	assert.Equal(t, "p-123", id)
	assert.Equal(t, "u-1", actor)
	assert.Equal(t, payload{Kind: "OUT", Quantity: -3}, got)
}

func TestProposal_NoAceptaTokenDeSesion(t *testing.T) {
	session, err := Generate(secret, "u-1", "admin", "x", 60)
	require.NoError(t, err)
	var got payload
	_, _, err = ParseProposal(secret, session, &got)
	assert.Error(t, err)

	expired, err := SignProposal(secret, "x", "p-1", "u-1", -1, payload{})
	require.NoError(t, err)
	_, _, err = ParseProposal(secret, expired, &got)
	assert.Error(t, err)
}
