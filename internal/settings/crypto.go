package settings

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sealed:"

var ErrUnsealFailed = errors.New("settings: cannot decrypt stored secret")

// sealer cifra los secretos guardados. Con clave nula deja el texto tal cual.
type sealer struct {
	key *[32]byte
}

func newSealer(secret string) sealer {
	if strings.TrimSpace(secret) == "" {
		return sealer{}
	}
	var key [32]byte
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("chat-front settings v1"))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		// hkdf con sha256 no se queda sin bytes para 32 bytes de salida.
		panic(err)
	}
	return sealer{key: &key}
}

func (s sealer) seal(plain string) (string, error) {
	if s.key == nil || plain == "" {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s sealer) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s.key == nil {
		return "", ErrUnsealFailed
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < 24 {
		return "", ErrUnsealFailed
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, s.key)
	if !ok {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}
