// Package fieldcrypt 存储字段级加密: base64(IV ‖ AES-256-CBC 密文)
//
// 格式必须与已有数据逐位兼容:
//   - key = SHA-256(UTF-8 password)
//   - PKCS#7 填充到 16 字节
//   - 每次加密使用新的 16 字节随机 IV
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const BlockSize = aes.BlockSize

var (
	ErrInvalidPadding      = errors.New("invalid padding")
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// DeriveKey 单次 SHA-256，得到 32 字节对称密钥
func DeriveKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

// Encrypt 用 password 派生的密钥加密 plaintext
func Encrypt(plaintext, password string) (string, error) {
	return encryptWithKey(plaintext, DeriveKey(password), rand.Reader)
}

// Decrypt 解密 Encrypt 的输出，空字符串直接返回空
func Decrypt(encoded, password string) (string, error) {
	return decryptWithKey(encoded, DeriveKey(password))
}

func encryptWithKey(plaintext string, key []byte, random io.Reader) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	padded := pad([]byte(plaintext))
	out := make([]byte, BlockSize+len(padded))
	iv := out[:BlockSize]
	if _, err := io.ReadFull(random, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func decryptWithKey(encoded string, key []byte) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	// IV + 至少一个密文块
	if len(raw) < 2*BlockSize || len(raw)%BlockSize != 0 {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformedCiphertext, len(raw))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv, body := raw[:BlockSize], raw[BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrMalformedCiphertext)
	}
	return string(plain), nil
}

// pad 填充 N 个值为 N 的字节，N ∈ [1,16]
func pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad 只校验最后一个字节的范围
func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	n := int(data[len(data)-1])
	if n < 1 || n > BlockSize {
		return nil, fmt.Errorf("%w: pad length %d", ErrInvalidPadding, n)
	}
	return data[:len(data)-n], nil
}

// Codec 绑定进程级密码，密钥只派生一次
type Codec struct {
	key []byte
}

func NewCodec(password string) *Codec {
	return &Codec{key: DeriveKey(password)}
}

func (c *Codec) EncryptField(plaintext string) (string, error) {
	return encryptWithKey(plaintext, c.key, rand.Reader)
}

func (c *Codec) DecryptField(encoded string) (string, error) {
	return decryptWithKey(encoded, c.key)
}
