package service

import (
	"crypto/rand"
	"math/big"
)

// TokenAlphabet omits characters that are easily confused when read aloud or
// scanned: 0/O, 1/I.
const TokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TokenLength is the number of characters in a ticket token.
const TokenLength = 8

// randomString draws n characters uniformly from alphabet using crypto/rand.
func randomString(alphabet string, n int) (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}

// GenerateTicketToken returns a fresh ticket token.
func GenerateTicketToken() (string, error) {
	return randomString(TokenAlphabet, TokenLength)
}
