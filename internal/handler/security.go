package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/albyshop/storefront/internal/domain/auth"
)

// APIKeySecurity returns a middleware that authenticates administrative
// requests via HMAC-SHA256 hashed API keys carried in the api_key header.
//
// The incoming key is hashed with the server-side pepper, looked up, and the
// stored hash compared in constant time to guard against timing
// side-channels even when the lookup already succeeded.
func APIKeySecurity(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				unauthorized(w)
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				unauthorized(w)
				return
			}

			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil {
				unauthorized(w)
				return
			}
			if subtle.ConstantTimeCompare(hash, stored) != 1 {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":401,"message":"unauthorized"}`))
}
