package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	p := NewHMACProvider("a-reasonably-long-test-secret-value")

	for _, userID := range []string{"alice", "user-42", "user.with.dots", "貓"} {
		t.Run(userID, func(t *testing.T) {
			token := p.Issue(userID)

			got, err := p.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, userID, got)
		})
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	p := NewHMACProvider("a-reasonably-long-test-secret-value")
	token := p.Issue("alice")

	tampered := token[:len(token)-1] + "x"
	if tampered == token {
		tampered = token[:len(token)-1] + "y"
	}

	_, err := p.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedUserID(t *testing.T) {
	p := NewHMACProvider("a-reasonably-long-test-secret-value")
	token := p.Issue("alice")

	forged := "mallory" + token[strings.IndexByte(token, '.'):]

	_, err := p.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewHMACProvider("secret-one-secret-one-secret-one")
	verifier := NewHMACProvider("secret-two-secret-two-secret-two")

	_, err := verifier.Verify(issuer.Issue("alice"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	p := NewHMACProvider("a-reasonably-long-test-secret-value")

	for _, token := range []string{"", "no-separator", ".sig-only", "user-only.", "."} {
		t.Run(token, func(t *testing.T) {
			_, err := p.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
