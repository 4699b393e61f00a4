package config

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/signing"
)

var zeroSeed = base64.StdEncoding.EncodeToString(make([]byte, 32))

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("node_id: CS-1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.NodeIdentity() != "CS-1" {
		t.Errorf("NodeIdentity = %q, want CS-1", cfg.NodeIdentity())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.Signing.VerificationPolicy() != signing.PolicyNone {
		t.Errorf("policy = %v, want none", cfg.Signing.VerificationPolicy())
	}
	if _, ok := cfg.Generator().(ids.UUIDGenerator); !ok {
		t.Errorf("Generator = %T, want UUIDGenerator", cfg.Generator())
	}
	if cfg.UplinkID() != "" {
		t.Errorf("UplinkID = %q, want empty", cfg.UplinkID())
	}
}

func TestParseFull(t *testing.T) {
	data := `
node_id: LC-7
request_timeout: 5s
id_policy: fast
uplink: CSMS
protocol_log: /tmp/lc7.cbor
signing:
  policy: any-trusted
  require_signature: true
  algorithm: ed25519-sha3-256
  keys:
    - algorithm: ed25519-sha3-256
      seed: ` + zeroSeed + `
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ids.NetworkingNodeID("CSMS"), cfg.UplinkID())
	assert.Equal(t, "/tmp/lc7.cbor", cfg.ProtocolLog)
	assert.Equal(t, signing.PolicyAnyTrusted, cfg.Signing.VerificationPolicy())
	assert.True(t, cfg.Signing.RequireSignature)
	assert.IsType(t, &ids.RandomGenerator{}, cfg.Generator())

	store, err := cfg.Signing.KeyStore()
	require.NoError(t, err)
	require.Len(t, cfg.Signing.KeyIDs, 1)

	key, err := store.SigningKey(cfg.Signing.KeyIDs[0])
	require.NoError(t, err)
	assert.Equal(t, signing.Ed25519SHA3, key.Public().Algorithm)

	// A second call does not duplicate the key id.
	_, err = cfg.Signing.KeyStore()
	require.NoError(t, err)
	assert.Len(t, cfg.Signing.KeyIDs, 1)
}

func TestTrustedKeys(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 7
	kp, err := signing.Ed25519FromSeed(signing.Ed25519SHA256, seed)
	require.NoError(t, err)

	data := "node_id: CSMS\nsigning:\n  policy: all-declared\n  trusted:\n    - public_key: " +
		base64.StdEncoding.EncodeToString(kp.Public().Bytes) + "\n"
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	store, err := cfg.Signing.KeyStore()
	require.NoError(t, err)
	pub, err := store.VerificationKey(kp.ID())
	require.NoError(t, err)
	assert.Equal(t, kp.Public().Bytes, pub.Bytes)
	assert.Empty(t, cfg.Signing.KeyIDs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		wantMsg string
	}{
		{name: "missing node id", data: "uplink: X\n", wantErr: ErrMissingNodeID},
		{name: "zero timeout", data: "node_id: A\nrequest_timeout: 0s\n", wantErr: ErrInvalidTimeout},
		{name: "self uplink", data: "node_id: A\nuplink: A\n", wantErr: ErrSelfUplink},
		{name: "require without policy", data: "node_id: A\nsigning:\n  require_signature: true\n", wantErr: ErrUnsignedRequire},
		{name: "bad id policy", data: "node_id: A\nid_policy: lucky\n", wantMsg: "id_policy"},
		{name: "bad verification policy", data: "node_id: A\nsigning:\n  policy: maybe\n", wantMsg: "signing.policy"},
		{name: "bad algorithm", data: "node_id: A\nsigning:\n  algorithm: rsa\n", wantErr: signing.ErrUnsupportedAlgorithm},
		{name: "short seed", data: "node_id: A\nsigning:\n  keys:\n    - seed: AAAA\n", wantErr: signing.ErrInvalidKey},
		{name: "seed for non ed25519", data: "node_id: A\nsigning:\n  keys:\n    - algorithm: ecdsa-p256-sha256\n      seed: " + zeroSeed + "\n", wantErr: signing.ErrUnsupportedAlgorithm},
		{name: "bad trusted key", data: "node_id: A\nsigning:\n  trusted:\n    - public_key: AAAA\n", wantMsg: "signing.trusted[0]"},
		{name: "not yaml", data: "node_id: [\n", wantMsg: "parsing node config"},
		{name: "duration as int", data: "node_id: A\nrequest_timeout: 30\n", wantMsg: "parsing node config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_id: EVSE-1\nuplink: LC-1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ids.NetworkingNodeID("EVSE-1"), cfg.NodeIdentity())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
