package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func makeToken(t *testing.T, secret, wallet, username string, expiresIn time.Duration) string {
	t.Helper()

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(expiresIn)),
	}
	if wallet != "" {
		claims["wallet"] = wallet
	}
	if username != "" {
		claims["username"] = username
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %+v", err)
	}
	return token
}

func TestVerifyToken(t *testing.T) {
	const secret = "validtokensecret"

	t.Run("valid_token", func(t *testing.T) {
		tokenString := makeToken(t, secret, "0xwallet", "alice", 15*time.Minute)

		claims, err := VerifyToken(tokenString, secret)
		if err != nil {
			t.Fatalf("VerifyToken() error = %+v", err)
		}
		if claims.Wallet != "0xwallet" {
			t.Errorf("wallet = %q, want %q", claims.Wallet, "0xwallet")
		}
		if claims.Username != "alice" {
			t.Errorf("username = %q, want %q", claims.Username, "alice")
		}
	})

	t.Run("username_optional", func(t *testing.T) {
		tokenString := makeToken(t, secret, "0xwallet", "", 15*time.Minute)

		claims, err := VerifyToken(tokenString, secret)
		if err != nil {
			t.Fatalf("VerifyToken() error = %+v", err)
		}
		if claims.Username != "" {
			t.Errorf("username = %q, want empty", claims.Username)
		}
	})

	t.Run("incorrect_secret", func(t *testing.T) {
		tokenString := makeToken(t, secret, "0xwallet", "", 15*time.Minute)

		if _, err := VerifyToken(tokenString, "fakesecret"); err == nil {
			t.Fatal("VerifyToken() should reject a mis-signed token")
		}
	})

	t.Run("expired_token", func(t *testing.T) {
		tokenString := makeToken(t, secret, "0xwallet", "", -1*time.Minute)

		if _, err := VerifyToken(tokenString, secret); err == nil {
			t.Fatal("VerifyToken() should reject an expired token")
		}
	})

	t.Run("missing_wallet_claim", func(t *testing.T) {
		tokenString := makeToken(t, secret, "", "alice", 15*time.Minute)

		if _, err := VerifyToken(tokenString, secret); err == nil {
			t.Fatal("VerifyToken() should reject a token without a wallet claim")
		}
	})

	t.Run("corrupt_token", func(t *testing.T) {
		if _, err := VerifyToken("corrupttoken", secret); err == nil {
			t.Fatal("VerifyToken() should reject garbage")
		}
	})
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"query_only", "/ws?token=abc", "", "abc"},
		{"header_only", "/ws", "Bearer xyz", "xyz"},
		{"query_wins_over_header", "/ws?token=abc", "Bearer xyz", "abc"},
		{"no_token", "/ws", "", ""},
		{"non_bearer_header", "/ws", "Basic dXNlcg==", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := TokenFromRequest(r); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdmission(t *testing.T) {
	const (
		jwtSecret     = "validtokensecret"
		serviceSecret = "sharedservicesecret"
	)

	t.Run("valid_token_sets_trusted_headers", func(t *testing.T) {
		var gotWallet, gotUsername, gotService string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = r.Header.Get(HeaderWallet)
			gotUsername = r.Header.Get(HeaderUsername)
			gotService = r.Header.Get(HeaderService)
		})

		tokenString := makeToken(t, jwtSecret, "0xwallet", "alice", 15*time.Minute)
		r := httptest.NewRequest(http.MethodGet, "/ws?token="+tokenString, nil)
		w := httptest.NewRecorder()

		Admission(next, jwtSecret, serviceSecret).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if gotWallet != "0xwallet" {
			t.Errorf("%s = %q, want %q", HeaderWallet, gotWallet, "0xwallet")
		}
		if gotUsername != "alice" {
			t.Errorf("%s = %q, want %q", HeaderUsername, gotUsername, "alice")
		}
		if gotService != "" {
			t.Errorf("%s = %q, want empty", HeaderService, gotService)
		}
	})

	t.Run("service_secret_grants_privileged_identity", func(t *testing.T) {
		var gotWallet, gotService string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = r.Header.Get(HeaderWallet)
			gotService = r.Header.Get(HeaderService)
		})

		r := httptest.NewRequest(http.MethodGet, "/ws?service_secret="+serviceSecret, nil)
		w := httptest.NewRecorder()

		Admission(next, jwtSecret, serviceSecret).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if gotService != "1" {
			t.Errorf("%s = %q, want %q", HeaderService, gotService, "1")
		}
		if gotWallet != "" {
			t.Errorf("%s = %q, want empty (no wallet for service identity)", HeaderWallet, gotWallet)
		}
	})

	rejections := []struct {
		name string
		url  string
	}{
		{"invalid_token", "/ws?token=garbage"},
		{"missing_token", "/ws"},
		{"wrong_service_secret", "/ws?service_secret=wrong"},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			Admission(next, jwtSecret, serviceSecret).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if called {
				t.Error("next handler should not run after a rejected admission")
			}
		})
	}

	t.Run("missing_server_secret_rejects", func(t *testing.T) {
		tokenString := makeToken(t, jwtSecret, "0xwallet", "", 15*time.Minute)
		r := httptest.NewRequest(http.MethodGet, "/ws?token="+tokenString, nil)
		w := httptest.NewRecorder()

		Admission(http.NotFoundHandler(), "", serviceSecret).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("client_supplied_trusted_headers_scrubbed", func(t *testing.T) {
		var gotWallet string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWallet = r.Header.Get(HeaderWallet)
		})

		r := httptest.NewRequest(http.MethodGet, "/ws?service_secret="+serviceSecret, nil)
		r.Header.Set(HeaderWallet, "0xforged")
		w := httptest.NewRecorder()

		Admission(next, jwtSecret, serviceSecret).ServeHTTP(w, r)

		if gotWallet != "" {
			t.Errorf("forged %s header survived admission: %q", HeaderWallet, gotWallet)
		}
	})
}
