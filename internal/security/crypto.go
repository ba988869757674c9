// Package security provides operator identity and request signing.
// Every operator has an Ed25519 keypair; the hex public key is the
// operator's principal on the coordinator.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pobal-network/pobal/internal/domain"
)

// Keypair holds an operator's Ed25519 identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a new Ed25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// LoadOrCreateKeypair loads the operator keypair from home/keys, or
// generates and stores one on first run.
func LoadOrCreateKeypair(home string) (*Keypair, error) {
	keyDir := filepath.Join(home, "keys")
	pubPath := filepath.Join(keyDir, "operator.pub")
	privPath := filepath.Join(keyDir, "operator.key")

	pubBytes, pubErr := os.ReadFile(pubPath)
	privBytes, privErr := os.ReadFile(privPath)

	if pubErr == nil && privErr == nil {
		pub, err := hex.DecodeString(strings.TrimSpace(string(pubBytes)))
		if err != nil {
			return nil, fmt.Errorf("decode public key: %w", err)
		}
		priv, err := hex.DecodeString(strings.TrimSpace(string(privBytes)))
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("key files in %s have the wrong size", keyDir)
		}
		return &Keypair{
			Public:  ed25519.PublicKey(pub),
			Private: ed25519.PrivateKey(priv),
		}, nil
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(kp.Public)), 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(kp.Private)), 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	return kp, nil
}

// PublicKeyHex returns the public key as a hex string.
func (kp *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public)
}

// Principal returns the coordinator identity of this keypair.
func (kp *Keypair) Principal() domain.Principal {
	return domain.Principal(kp.PublicKeyHex())
}

// Sign signs a message with the private key.
func (kp *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}

// Verify checks a signature against a public key.
func Verify(message, signature []byte, publicKey ed25519.PublicKey) bool {
	return ed25519.Verify(publicKey, message, signature)
}

// PublicKeyOf decodes a principal that is a hex Ed25519 public key.
func PublicKeyOf(p domain.Principal) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(string(p))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %s is not an ed25519 public key", domain.ErrInvalidPrincipal, p.Short())
	}
	return ed25519.PublicKey(raw), nil
}
