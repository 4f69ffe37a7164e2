// pkg/rest/signer.go
package rest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
)

// Signer добавляет аутентификацию к исходящему запросу: query уже
// собран, но ещё не вшит в URL, поэтому подписант может дополнить его.
type Signer interface {
	Sign(req *http.Request, query url.Values) error
}

// NoAuth — подписант для публичных эндпоинтов: ничего не делает.
type NoAuth struct{}

func (NoAuth) Sign(*http.Request, url.Values) error { return nil }

// HMACSigner подписывает запрос по схеме hex(HMAC-SHA256(secret, query)):
// подпись добавляется query-параметром SigParam, API-ключ — заголовком
// KeyHeader. Так работают binance и bybit.
type HMACSigner struct {
	APIKey    string
	Secret    []byte
	KeyHeader string // например "X-MBX-APIKEY"
	SigParam  string // например "signature"
}

// Sign реализует Signer.
func (s HMACSigner) Sign(req *http.Request, query url.Values) error {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(query.Encode()))
	query.Set(s.SigParam, hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set(s.KeyHeader, s.APIKey)
	return nil
}
