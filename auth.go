package memoclaw

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

const authMessagePrefix = "memoclaw-auth:"

// ErrInvalidKey is returned when the configured private key cannot be parsed.
// It is fatal and surfaced at construction, before any network attempt.
var ErrInvalidKey = fmt.Errorf("memoclaw: invalid private key")

// walletSigner produces per-attempt authentication credentials from an
// Ethereum private key. Credentials embed a timestamp and must be
// regenerated for every attempt; the server rejects stale signatures.
type walletSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWalletSigner(privateKey string) (*walletSigner, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &walletSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

// authHeader signs "memoclaw-auth:{unix_ts}" with the EIP-191 personal-sign
// prefix and returns the "address:timestamp:signature" credential.
func (s *walletSigner) authHeader(now time.Time) (string, error) {
	ts := strconv.FormatInt(now.Unix(), 10)
	msg := authMessagePrefix + ts
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), s.key)
	if err != nil {
		return "", fmt.Errorf("memoclaw: signing auth message: %w", err)
	}
	// Recovery byte follows the eth_sign convention (27/28).
	sig[64] += 27
	return s.address + ":" + ts + ":0x" + hex.EncodeToString(sig), nil
}
