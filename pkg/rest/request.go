// pkg/rest/request.go
package rest

import (
	"net/url"
	"time"
)

// Request описывает один REST-вызов к бирже.
//
// Metric — статическая метка запроса для гистограммы длительности
// (например, "fetch_server_time"): реальный путь может содержать
// переменные части и не годится как label.
type Request struct {
	Method  string        // http.MethodGet, http.MethodPost, ...
	Path    string        // путь относительно BaseURL, например "/api/v3/time"
	Metric  string        // метка для метрик, обязательна
	Query   url.Values    // query-параметры (опционально)
	Body    []byte        // тело запроса (опционально)
	Sign    bool          // true → запрос подписывается Signer-ом
	Timeout time.Duration // персональный таймаут; ноль → таймаут клиента
}
