package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc извлекает ключ клиента из запроса
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc заголовок keyHeader, затем первый адрес X-Forwarded-For
// (если trustXFF), затем хост из RemoteAddr
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}
