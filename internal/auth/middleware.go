package auth

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// Admission gates the websocket upgrade. A matching service_secret query
// parameter admits a privileged service identity with no wallet; a valid
// signed token admits the wallet it carries. Either way the verified
// identity is attached as trusted headers for the connect step. Every
// failure is a bare 401: the specific reason is for logs only.
func Admission(next http.Handler, jwtSecret, serviceSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Scrub any client-supplied copies of the trusted headers.
		r.Header.Del(HeaderWallet)
		r.Header.Del(HeaderUsername)
		r.Header.Del(HeaderService)

		if secret := r.URL.Query().Get("service_secret"); secret != "" {
			if serviceSecret != "" &&
				subtle.ConstantTimeCompare([]byte(secret), []byte(serviceSecret)) == 1 {
				r.Header.Set(HeaderService, "1")
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("admission: service secret mismatch from %s", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token := TokenFromRequest(r)
		if token == "" {
			log.Printf("admission: missing token from %s", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if jwtSecret == "" {
			log.Printf("admission: server token secret is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := VerifyToken(token, jwtSecret)
		if err != nil {
			log.Printf("admission: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Header.Set(HeaderWallet, claims.Wallet)
		if claims.Username != "" {
			r.Header.Set(HeaderUsername, claims.Username)
		}
		next.ServeHTTP(w, r)
	}
}
