package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/jimdaga/casebook/internal/crypto"
)

var encryptor *crypto.Encryptor

// InitEncryption initializes the column encryptor for the models package.
// Must be called before any database operations involving EncryptedString
// columns. Without it values are stored as plain text (development, tests).
func InitEncryption(encryptionKey string) error {
	enc, err := crypto.NewEncryptor(encryptionKey)
	if err != nil {
		return err
	}
	encryptor = enc
	return nil
}

// EncryptedString is a string column encrypted at rest with AES-256-GCM.
// The Go value is always plain text.
type EncryptedString string

// Value encrypts the string for storage.
func (s EncryptedString) Value() (driver.Value, error) {
	if encryptor == nil || s == "" {
		return string(s), nil
	}
	ct, err := encryptor.Encrypt(string(s))
	if err != nil {
		return nil, err
	}
	return ct, nil
}

// Scan decrypts a stored value.
func (s *EncryptedString) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*s = ""
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported type %T for EncryptedString", value)
	}

	if encryptor == nil {
		*s = EncryptedString(raw)
		return nil
	}
	pt, err := encryptor.Decrypt(raw)
	if err != nil {
		return err
	}
	*s = EncryptedString(pt)
	return nil
}

func (s EncryptedString) String() string { return string(s) }
