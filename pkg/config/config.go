// Package config loads the YAML configuration of a networking node.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/signing"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// Configuration errors.
var (
	ErrMissingNodeID   = errors.New("node_id is required")
	ErrInvalidTimeout  = errors.New("request_timeout must be positive")
	ErrSelfUplink      = errors.New("uplink must differ from node_id")
	ErrUnsignedRequire = errors.New("require_signature needs a verification policy")
)

// NodeConfig configures one networking node.
type NodeConfig struct {
	NodeID string `yaml:"node_id"`

	// RequestTimeout applies to requests created without their own timeout.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// IDPolicy is "cryptographic" (default) or "fast".
	IDPolicy string `yaml:"id_policy"`

	// Uplink receives requests for destinations that are not direct links.
	Uplink string `yaml:"uplink"`

	Signing SigningConfig `yaml:"signing"`

	// ProtocolLog is the path of the CBOR protocol capture. Empty disables it.
	ProtocolLog string `yaml:"protocol_log"`
}

// SigningConfig selects how outgoing messages are signed and incoming ones
// verified.
type SigningConfig struct {
	Policy           string   `yaml:"policy"`
	RequireSignature bool     `yaml:"require_signature"`
	KeyIDs           []string `yaml:"key_ids"`
	Algorithm        string   `yaml:"algorithm"`

	// Keys are local signing keys given as base64 ed25519 seeds.
	Keys []KeyConfig `yaml:"keys"`

	// Trusted are public keys of other nodes, base64 encoded.
	Trusted []KeyConfig `yaml:"trusted"`
}

// KeyConfig is one key of the signing section.
type KeyConfig struct {
	Algorithm string `yaml:"algorithm"`
	Seed      string `yaml:"seed,omitempty"`
	PublicKey string `yaml:"public_key,omitempty"`
}

// DefaultNodeConfig returns the defaults applied before parsing.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		RequestTimeout: wire.DefaultRequestTimeout,
		IDPolicy:       ids.PolicyCryptographic.String(),
		Signing: SigningConfig{
			Policy:    signing.PolicyNone.String(),
			Algorithm: string(signing.DefaultAlgorithm),
		},
	}
}

// Parse decodes a configuration from YAML bytes on top of the defaults and
// validates it.
func Parse(data []byte) (*NodeConfig, error) {
	cfg := DefaultNodeConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing node config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks the configuration for consistency.
func (c *NodeConfig) Validate() error {
	if c.NodeID == "" {
		return ErrMissingNodeID
	}
	if _, err := ids.ParseNodeID(c.NodeID); err != nil {
		return fmt.Errorf("node_id: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := ids.ParsePolicy(c.IDPolicy); err != nil {
		return fmt.Errorf("id_policy: %w", err)
	}
	if c.Uplink != "" {
		if _, err := ids.ParseNodeID(c.Uplink); err != nil {
			return fmt.Errorf("uplink: %w", err)
		}
		if c.Uplink == c.NodeID {
			return ErrSelfUplink
		}
	}
	return c.Signing.validate()
}

func (s *SigningConfig) validate() error {
	policy, err := signing.ParsePolicy(s.Policy)
	if err != nil {
		return fmt.Errorf("signing.policy: %w", err)
	}
	if s.RequireSignature && policy == signing.PolicyNone {
		return ErrUnsignedRequire
	}
	if _, err := signing.ParseAlgorithm(s.Algorithm); err != nil {
		return fmt.Errorf("signing.algorithm: %w", err)
	}
	for i, k := range s.Keys {
		if _, err := k.keyPair(); err != nil {
			return fmt.Errorf("signing.keys[%d]: %w", i, err)
		}
	}
	for i, k := range s.Trusted {
		if _, err := k.publicKey(); err != nil {
			return fmt.Errorf("signing.trusted[%d]: %w", i, err)
		}
	}
	return nil
}

// NodeIdentity returns the node id.
func (c *NodeConfig) NodeIdentity() ids.NetworkingNodeID {
	return ids.NetworkingNodeID(c.NodeID)
}

// UplinkID returns the uplink, or "".
func (c *NodeConfig) UplinkID() ids.NetworkingNodeID {
	return ids.NetworkingNodeID(c.Uplink)
}

// Generator returns the id generator selected by IDPolicy.
func (c *NodeConfig) Generator() ids.Generator {
	p, _ := ids.ParsePolicy(c.IDPolicy)
	return ids.NewGenerator(p)
}

// VerificationPolicy returns the parsed signing policy.
func (s *SigningConfig) VerificationPolicy() signing.Policy {
	p, _ := signing.ParsePolicy(s.Policy)
	return p
}

// KeyStore builds a key store holding the configured signing and trusted
// keys. The ids of the signing keys are appended to KeyIDs.
func (s *SigningConfig) KeyStore() (*signing.MemoryKeyStore, error) {
	store := signing.NewMemoryKeyStore()
	for i, k := range s.Keys {
		kp, err := k.keyPair()
		if err != nil {
			return nil, fmt.Errorf("signing.keys[%d]: %w", i, err)
		}
		store.AddSigningKey(kp)
		if !slices.Contains(s.KeyIDs, kp.ID()) {
			s.KeyIDs = append(s.KeyIDs, kp.ID())
		}
	}
	for i, k := range s.Trusted {
		pub, err := k.publicKey()
		if err != nil {
			return nil, fmt.Errorf("signing.trusted[%d]: %w", i, err)
		}
		store.AddTrustedKey(pub)
	}
	return store, nil
}

func (k KeyConfig) algorithm() (signing.Algorithm, error) {
	if k.Algorithm == "" {
		return signing.DefaultAlgorithm, nil
	}
	return signing.ParseAlgorithm(k.Algorithm)
}

func (k KeyConfig) keyPair() (*signing.KeyPair, error) {
	alg, err := k.algorithm()
	if err != nil {
		return nil, err
	}
	seed, err := base64.StdEncoding.DecodeString(k.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return signing.Ed25519FromSeed(alg, seed)
}

func (k KeyConfig) publicKey() (signing.PublicKey, error) {
	alg, err := k.algorithm()
	if err != nil {
		return signing.PublicKey{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(k.PublicKey)
	if err != nil {
		return signing.PublicKey{}, fmt.Errorf("public_key: %w", err)
	}
	return signing.NewPublicKey(alg, raw)
}
