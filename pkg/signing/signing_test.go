package signing

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sorted keys", `{"b":1,"a":{"d":2,"c":3}}`, `{"a":{"c":3,"d":2},"b":1}`},
		{"drops signatures", `{"a":1,"signatures":[{"keyId":"k"}]}`, `{"a":1}`},
		{"keeps nested signatures", `{"x":{"signatures":[]}}`, `{"x":{"signatures":[]}}`},
		{"numbers verbatim", `{"v":1.50,"w":10000000000000000001}`, `{"v":1.50,"w":10000000000000000001}`},
		{"no html escaping", `{"url":"https://x/?a=1&b=<2>"}`, `{"url":"https://x/?a=1&b=<2>"}`},
		{"whitespace", "{ \"a\" :\n 1 }", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize([]byte(tt.input))
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}

	for _, bad := range []string{`[1,2]`, `null`, `{"a":1} {}`, `{`} {
		if _, err := Canonicalize([]byte(bad)); !errors.Is(err, ErrNotCanonicalizable) {
			t.Errorf("Canonicalize(%s) error = %v, want ErrNotCanonicalizable", bad, err)
		}
	}
}

func TestKeyIDIsStable(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := Ed25519FromSeed(Ed25519SHA256, seed)
	require.NoError(t, err)
	b, err := Ed25519FromSeed(Ed25519SHA256, seed)
	require.NoError(t, err)

	assert.Equal(t, a.ID(), b.ID())
	assert.True(t, strings.HasPrefix(a.ID(), "bafkrei"), "CIDv1 raw sha2-256 id, got %s", a.ID())
	assert.LessOrEqual(t, len(a.ID()), 64)
}

func TestSignAndVerifyAllAlgorithms(t *testing.T) {
	payload := []byte(`{"chargingStation":{"model":"X","vendorName":"Y"},"reason":"PowerUp"}`)

	for _, alg := range []Algorithm{Ed25519SHA256, Ed25519SHA3, ECDSAP256SHA256, Dilithium3SHA3} {
		t.Run(string(alg), func(t *testing.T) {
			key, err := GenerateKey(alg, nil)
			require.NoError(t, err)

			keys := NewMemoryKeyStore()
			keys.AddSigningKey(key)

			sigs, err := NewSigner(keys).Sign(payload, key.ID())
			require.NoError(t, err)
			require.Len(t, sigs, 1)
			assert.Equal(t, string(alg), sigs[0].SigningMethod)

			v := NewVerifier(keys, PolicyAllDeclared, true)
			assert.NoError(t, v.Verify(payload, sigs))

			tampered := bytes.Replace(payload, []byte("PowerUp"), []byte("Watchdog"), 1)
			err = v.Verify(tampered, sigs)
			assert.ErrorIs(t, err, ErrSignature)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifyIgnoresFieldOrderAndSignatures(t *testing.T) {
	key, err := GenerateKey(Ed25519SHA256, nil)
	require.NoError(t, err)
	keys := NewMemoryKeyStore()
	keys.AddSigningKey(key)

	sigs, err := NewSigner(keys).Sign([]byte(`{"a":1,"b":"x"}`), key.ID())
	require.NoError(t, err)

	received := []byte(`{"b":"x","signatures":[{"keyId":"whatever"}],"a":1}`)
	assert.NoError(t, NewVerifier(keys, PolicyAnyTrusted, true).Verify(received, sigs))
}

func TestVerifierPolicies(t *testing.T) {
	payload := []byte(`{"interval":300}`)

	local, err := GenerateKey(Ed25519SHA256, nil)
	require.NoError(t, err)
	stranger, err := GenerateKey(Ed25519SHA256, nil)
	require.NoError(t, err)

	signerKeys := NewMemoryKeyStore()
	signerKeys.AddSigningKey(local)
	signerKeys.AddSigningKey(stranger)
	sigs, err := NewSigner(signerKeys).Sign(payload, local.ID(), stranger.ID())
	require.NoError(t, err)

	verifierKeys := NewMemoryKeyStore()
	verifierKeys.AddTrustedKey(local.Public())

	tests := []struct {
		name    string
		policy  Policy
		require bool
		sigs    int
		wantErr error
	}{
		{"none accepts anything", PolicyNone, false, 2, nil},
		{"any trusted ignores stranger", PolicyAnyTrusted, false, 2, nil},
		{"all declared rejects stranger", PolicyAllDeclared, false, 2, ErrUnknownKey},
		{"all declared with trusted only", PolicyAllDeclared, false, 1, nil},
		{"unsigned allowed", PolicyAllDeclared, false, 0, nil},
		{"unsigned required", PolicyAnyTrusted, true, 0, ErrMissingSignature},
		{"none still requires presence", PolicyNone, true, 0, ErrMissingSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewVerifier(verifierKeys, tt.policy, tt.require).Verify(payload, sigs[:tt.sigs])
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrSignature)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	onlyStranger := NewVerifier(verifierKeys, PolicyAnyTrusted, false).Verify(payload, sigs[1:])
	assert.ErrorIs(t, onlyStranger, ErrNoTrustedSigner)

	verifierKeys.Revoke(local.ID())
	revoked := NewVerifier(verifierKeys, PolicyAnyTrusted, false).Verify(payload, sigs)
	assert.ErrorIs(t, revoked, ErrRevokedKey)
}

func TestVerifyMethodMismatch(t *testing.T) {
	key, err := GenerateKey(Ed25519SHA256, nil)
	require.NoError(t, err)
	keys := NewMemoryKeyStore()
	keys.AddSigningKey(key)

	sigs, err := NewSigner(keys).Sign([]byte(`{}`), key.ID())
	require.NoError(t, err)
	sigs[0].SigningMethod = string(Ed25519SHA3)

	err = NewVerifier(keys, PolicyAnyTrusted, false).Verify([]byte(`{}`), sigs)
	assert.ErrorIs(t, err, ErrMethodMismatch)
}

func TestSignerErrors(t *testing.T) {
	keys := NewMemoryKeyStore()
	s := NewSigner(keys)

	_, err := s.Sign([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = s.Sign([]byte(`{}`), "missing")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = s.Sign([]byte(`[]`), "missing")
	assert.ErrorIs(t, err, ErrNotCanonicalizable)
}

func TestSignerTimestamp(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	key, err := GenerateKey(Ed25519SHA256, nil)
	require.NoError(t, err)
	keys := NewMemoryKeyStore()
	keys.AddSigningKey(key)

	sigs, err := NewSigner(keys, WithSignerClock(mock)).Sign([]byte(`{}`), key.ID())
	require.NoError(t, err)
	require.NotNil(t, sigs[0].Timestamp)
	assert.True(t, sigs[0].Timestamp.Equal(mock.Now()))
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseAlgorithm("rsa-sha1"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("ParseAlgorithm(rsa-sha1) error = %v", err)
	}
	if a, err := ParseAlgorithm("dilithium3-sha3-256"); err != nil || a != Dilithium3SHA3 {
		t.Errorf("ParseAlgorithm() = %v, %v", a, err)
	}
	if p, err := ParsePolicy("All-Declared"); err != nil || p != PolicyAllDeclared {
		t.Errorf("ParsePolicy() = %v, %v", p, err)
	}
	if _, err := NewPublicKey(Ed25519SHA256, []byte{1, 2}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewPublicKey(short) error = %v", err)
	}
}
