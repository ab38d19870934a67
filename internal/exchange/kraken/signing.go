package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"github.com/c-rw/spicetrader-go/internal/domain"
)

// sign computes Kraken's API-Sign header value: HMAC-SHA512 of
// urlPath + SHA256(nonce + postdata), keyed by the base64-decoded API
// secret.
func sign(apiSecret, urlPath, nonce, postdata string) (string, error) {
	decodedSecret, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		return "", fmt.Errorf("%w: api secret is not valid base64", domain.ErrTransportAuth)
	}

	shaSum := sha256.Sum256([]byte(nonce + postdata))

	message := make([]byte, 0, len(urlPath)+len(shaSum))
	message = append(message, urlPath...)
	message = append(message, shaSum[:]...)

	mac := hmac.New(sha512.New, decodedSecret)
	mac.Write(message)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
