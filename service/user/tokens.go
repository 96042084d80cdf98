package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// newRefreshToken returns <user>_<random>_<hmac>. The HMAC ties the random
// part to the user so a token cannot be replayed for another account.
func newRefreshToken(secret []byte, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d", userID)
	mac.Write(b)
	return fmt.Sprintf("%d_%x_%x", userID, b, mac.Sum(nil)), nil
}

// newResetCode returns a zero-padded six digit code.
func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
