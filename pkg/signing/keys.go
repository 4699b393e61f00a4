package signing

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/sha3"
)

// Key errors.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	ErrInvalidKey           = errors.New("invalid key")
)

// Algorithm names a signing method as carried in Signature.SigningMethod.
type Algorithm string

// Supported algorithms.
const (
	Ed25519SHA256    Algorithm = "ed25519-sha256"
	Ed25519SHA3      Algorithm = "ed25519-sha3-256"
	ECDSAP256SHA256  Algorithm = "ecdsa-p256-sha256"
	Dilithium3SHA3   Algorithm = "dilithium3-sha3-256"
	DefaultAlgorithm           = Ed25519SHA256
)

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case Ed25519SHA256, Ed25519SHA3, ECDSAP256SHA256, Dilithium3SHA3:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) digest(message []byte) ([]byte, error) {
	switch a {
	case Ed25519SHA256, ECDSAP256SHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case Ed25519SHA3, Dilithium3SHA3:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, a)
	}
}

// PublicKey is a verification key in its raw binary encoding.
type PublicKey struct {
	ID        string
	Algorithm Algorithm
	Bytes     []byte
}

// NewPublicKey validates raw key bytes and derives the key id.
func NewPublicKey(alg Algorithm, raw []byte) (PublicKey, error) {
	switch alg {
	case Ed25519SHA256, Ed25519SHA3:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, fmt.Errorf("%w: ed25519 public key length %d", ErrInvalidKey, len(raw))
		}
	case ECDSAP256SHA256:
		if _, err := ecdsa.ParseUncompressedPublicKey(elliptic.P256(), raw); err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	case Dilithium3SHA3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	default:
		return PublicKey{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	id, err := KeyID(raw)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{ID: id, Algorithm: alg, Bytes: append([]byte(nil), raw...)}, nil
}

// KeyID derives a stable key id: a CIDv1 (raw codec) over the sha2-256
// multihash of the public key bytes.
func KeyID(pub []byte) (string, error) {
	sum, err := multihash.Sum(pub, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Verify checks sig over the digest of message.
func (k PublicKey) Verify(message, sig []byte) (bool, error) {
	digest, err := k.Algorithm.digest(message)
	if err != nil {
		return false, err
	}
	switch k.Algorithm {
	case Ed25519SHA256, Ed25519SHA3:
		if len(k.Bytes) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(k.Bytes), digest, sig), nil
	case ECDSAP256SHA256:
		pk, err := ecdsa.ParseUncompressedPublicKey(elliptic.P256(), k.Bytes)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return ecdsa.VerifyASN1(pk, digest, sig), nil
	case Dilithium3SHA3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(k.Bytes); err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		if len(sig) != mode3.SignatureSize {
			return false, nil
		}
		return mode3.Verify(&pk, digest, sig), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, k.Algorithm)
}

// KeyPair is a signing key together with its public half.
type KeyPair struct {
	public  PublicKey
	private any
}

// GenerateKey creates a new key pair. A nil reader selects crypto/rand.
func GenerateKey(alg Algorithm, r io.Reader) (*KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var (
		raw  []byte
		priv any
	)
	switch alg {
	case Ed25519SHA256, Ed25519SHA3:
		pub, sk, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, err
		}
		raw, priv = pub, sk
	case ECDSAP256SHA256:
		sk, err := ecdsa.GenerateKey(elliptic.P256(), r)
		if err != nil {
			return nil, err
		}
		if raw, err = sk.PublicKey.Bytes(); err != nil {
			return nil, err
		}
		priv = sk
	case Dilithium3SHA3:
		pub, sk, err := mode3.GenerateKey(r)
		if err != nil {
			return nil, err
		}
		if raw, err = pub.MarshalBinary(); err != nil {
			return nil, err
		}
		priv = sk
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	return newKeyPair(alg, raw, priv)
}

// Ed25519FromSeed derives a deterministic ed25519 key pair.
func Ed25519FromSeed(alg Algorithm, seed []byte) (*KeyPair, error) {
	if alg != Ed25519SHA256 && alg != Ed25519SHA3 {
		return nil, fmt.Errorf("%w: %q is not an ed25519 method", ErrUnsupportedAlgorithm, alg)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed length %d", ErrInvalidKey, len(seed))
	}
	sk := ed25519.NewKeyFromSeed(seed)
	return newKeyPair(alg, sk.Public().(ed25519.PublicKey), sk)
}

func newKeyPair(alg Algorithm, raw []byte, priv any) (*KeyPair, error) {
	pub, err := NewPublicKey(alg, raw)
	if err != nil {
		return nil, err
	}
	return &KeyPair{public: pub, private: priv}, nil
}

// ID returns the key id.
func (k *KeyPair) ID() string {
	return k.public.ID
}

// Public returns the verification key.
func (k *KeyPair) Public() PublicKey {
	return k.public
}

// Sign signs the digest of message.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	digest, err := k.public.Algorithm.digest(message)
	if err != nil {
		return nil, err
	}
	switch sk := k.private.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(sk, digest), nil
	case *ecdsa.PrivateKey:
		return ecdsa.SignASN1(rand.Reader, sk, digest)
	case *mode3.PrivateKey:
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(sk, digest, sig)
		return sig, nil
	}
	return nil, fmt.Errorf("%w: no private key", ErrInvalidKey)
}
