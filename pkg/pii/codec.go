package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// tokenRefLen is the length of the hex reference embedded in a placeholder.
const tokenRefLen = 16

// TokenPattern matches placeholder tokens produced by FormatToken.
var TokenPattern = regexp.MustCompile(`\[PII_([A-Z_]+)_([0-9a-f]{16})\]`)

// Codec encrypts PII values for storage and produces the derived artifacts
// that may leave the system: salted hashes and masked previews.
type Codec struct {
	aead cipher.AEAD
	salt string
}

// NewCodec builds a codec from a hex-encoded 32-byte key. An empty key
// generates a random one and logs it so operators can pin it; generated
// keys do not survive restarts, which makes stored tokens unrecoverable.
func NewCodec(keyHex string) (*Codec, error) {
	var key []byte
	if keyHex == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate encryption key: %w", err)
		}
		log.Printf("[WARN] AEGIS_PII_ENCRYPTION_KEY not set, generated ephemeral key %s - set it in production or stored tokens will not survive restarts", hex.EncodeToString(key))
	} else {
		decoded, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(decoded))
		}
		key = decoded
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return &Codec{aead: aead, salt: hex.EncodeToString(salt)}, nil
}

// Encrypt seals a PII value. Output is base64(nonce || ciphertext).
func (c *Codec) Encrypt(value string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Codec) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}

// HashValue produces a one-way salted hash of a PII value for audit trails.
func (c *Codec) HashValue(value string) string {
	sum := sha256.Sum256([]byte(value + ":" + c.salt))
	return hex.EncodeToString(sum[:])
}

// NewTokenRef returns a fresh 16-hex-char token reference.
func NewTokenRef() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenRefLen]
}

// FormatToken renders the placeholder embedded in tokenized text.
func FormatToken(t Type, ref string) string {
	return "[PII_" + strings.ToUpper(string(t)) + "_" + ref + "]"
}

// Mask keeps the first and last two characters of a value and fills the
// rest with X. Short values are fully masked.
func Mask(value string) string {
	const keep = 2
	runes := []rune(value)
	if len(runes) <= keep*2 {
		return strings.Repeat("X", len(runes))
	}
	return string(runes[:keep]) + strings.Repeat("X", len(runes)-keep*2) + string(runes[len(runes)-keep:])
}
