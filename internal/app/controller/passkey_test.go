package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasskeyBuffer_MatchesFullSecret(t *testing.T) {
	p := passkeyBuffer{secret: ".--..-"}

	for _, sym := range []string{".", "-", "-", ".", "."} {
		assert.False(t, p.Feed(sym))
	}
	assert.True(t, p.Feed("-"))
	assert.Equal(t, "", p.Entered(), "buffer clears after a match")
}

func TestPasskeyBuffer_MismatchKeepsValidStart(t *testing.T) {
	p := passkeyBuffer{secret: ".--..-"}

	p.Feed(".")
	assert.False(t, p.Feed("."), "'..' is not a prefix")
	// The stray symbol itself starts the secret, so it is kept.
	assert.Equal(t, ".", p.Entered())
}

func TestPasskeyBuffer_MismatchDropsInvalidStart(t *testing.T) {
	p := passkeyBuffer{secret: ".--..-"}

	p.Feed("-")
	assert.Equal(t, "", p.Entered(), "'-' does not start the secret")
}

func TestPasskeyBuffer_RetryAfterMismatch(t *testing.T) {
	p := passkeyBuffer{secret: ".-"}

	assert.False(t, p.Feed("."))
	assert.False(t, p.Feed("."), "breaks the sequence but restarts it")
	assert.True(t, p.Feed("-"))
}

func TestPasskeyBuffer_EmptySecretNeverMatches(t *testing.T) {
	p := passkeyBuffer{secret: ""}

	assert.False(t, p.Feed("."))
	assert.False(t, p.Feed("-"))
}

func TestPasskeyBuffer_Reset(t *testing.T) {
	p := passkeyBuffer{secret: ".--..-"}

	p.Feed(".")
	p.Feed("-")
	p.Reset()
	assert.Equal(t, "", p.Entered())
}
