package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/hkdf"
)

// Names of the supported credential schemes
const (
	SchemePlaintext = "plaintext"
	SchemeEncrypted = "encrypted"
	SchemeBcrypt    = "bcrypt"
)

// CredentialScheme turns a submitted password into stored credential material
// and checks submitted passwords against it.
//
// A scheme is chosen once for the whole process. Verify returns nil on a
// match and an error wrapping ErrCredentialMismatch otherwise.
type CredentialScheme interface {
	Name() string
	Derive(secret string) (string, error)
	Verify(material, secret string) error

	// VerifyDummy performs the same work as Verify against fixed material
	// and always fails. Used when the user does not exist.
	VerifyDummy(secret string) error
}

// NewCredentialScheme builds a scheme by name. key is only used by the
// encrypted scheme.
func NewCredentialScheme(name string, key string) (CredentialScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SchemePlaintext:
		return PlaintextScheme{}, nil
	case SchemeEncrypted:
		return NewEncryptedScheme(key)
	case SchemeBcrypt, "", "hash":
		return NewHashScheme(bcrypt.DefaultCost)
	}
	return nil, fmt.Errorf("unknown credential scheme: %q", name)
}

// =============================================================================
// Plaintext
// =============================================================================

// PlaintextScheme stores passwords as-is.
type PlaintextScheme struct{}

func (PlaintextScheme) Name() string { return SchemePlaintext }

func (PlaintextScheme) Derive(secret string) (string, error) {
	return secret, nil
}

func (PlaintextScheme) Verify(material, secret string) error {
	if subtle.ConstantTimeCompare([]byte(material), []byte(secret)) != 1 {
		return ErrCredentialMismatch
	}
	return nil
}

func (s PlaintextScheme) VerifyDummy(secret string) error {
	s.Verify("", secret)
	return ErrCredentialMismatch
}

// =============================================================================
// Encrypted
// =============================================================================

// EncryptedScheme stores passwords as Fernet tokens. The Fernet key is
// derived from the configured secret with HKDF-SHA256.
type EncryptedScheme struct {
	key   *fernet.Key
	dummy string
}

const encryptionKeyInfo = "secrets/password-field"

func NewEncryptedScheme(secret string) (*EncryptedScheme, error) {
	if secret == "" {
		return nil, fmt.Errorf("encrypted credential scheme requires a secret")
	}
	var key fernet.Key
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(encryptionKeyInfo))
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	out := &EncryptedScheme{key: &key}
	dummy, err := out.Derive("")
	if err != nil {
		return nil, err
	}
	out.dummy = dummy
	return out, nil
}

func (s *EncryptedScheme) Name() string { return SchemeEncrypted }

func (s *EncryptedScheme) Derive(secret string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(secret), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt password: %w", err)
	}
	return string(tok), nil
}

func (s *EncryptedScheme) Verify(material, secret string) error {
	// negative ttl disables the token age check
	plain := fernet.VerifyAndDecrypt([]byte(material), -1, []*fernet.Key{s.key})
	if plain == nil {
		return fmt.Errorf("%w: stored password does not decrypt", ErrCredentialMismatch)
	}
	if subtle.ConstantTimeCompare(plain, []byte(secret)) != 1 {
		return ErrCredentialMismatch
	}
	return nil
}

func (s *EncryptedScheme) VerifyDummy(secret string) error {
	s.Verify(s.dummy, secret)
	return ErrCredentialMismatch
}

// =============================================================================
// Salted hash
// =============================================================================

// HashScheme stores bcrypt hashes; the salt is embedded in each hash.
type HashScheme struct {
	cost  int
	dummy []byte
}

func NewHashScheme(cost int) (*HashScheme, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &HashScheme{cost: cost, dummy: dummy}, nil
}

func (s *HashScheme) Name() string { return SchemeBcrypt }

func (s *HashScheme) Derive(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *HashScheme) Verify(material, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(material), []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrCredentialMismatch
	}
	return fmt.Errorf("%w: %v", ErrCredentialMismatch, err)
}

func (s *HashScheme) VerifyDummy(secret string) error {
	bcrypt.CompareHashAndPassword(s.dummy, []byte(secret))
	return ErrCredentialMismatch
}
