// Copyright 2024 The pallas Authors
// This file is part of the pallas library.
//
// The pallas library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The pallas library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the pallas library. If not, see <http://www.gnu.org/licenses/>.

package rpc

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingToken  = errors.New("missing Authorization bearer token")
	errBadAlgorithm  = errors.New("unexpected JWT signing algorithm")
	errMissingClaims = errors.New("missing iat claim")
	errClockSkew     = errors.New("iat claim outside allowed clock skew")
)

// JWTVerifier checks the HS256 bearer token every Engine API request must
// carry: signed with a 32-byte shared secret, with an `iat` claim within a
// small window of the server's clock.
type JWTVerifier struct {
	secret [32]byte
	skew   time.Duration
}

// NewJWTVerifier builds a JWTVerifier over secret, rejecting any token whose
// `iat` claim differs from the server clock by more than skew.
func NewJWTVerifier(secret [32]byte, skew time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: secret, skew: skew}
}

// Verify parses and validates token, a raw JWT string. Any "none" or
// non-HS256 algorithm is rejected outright: accepting "none" would let a
// client forge a token with no secret at all. The library's own claim
// validation is disabled since it rejects any future-dated iat, while the
// Engine API allows one up to the skew window ahead of the server clock;
// the window is enforced below instead.
func (v *JWTVerifier) Verify(token string) error {
	if token == "" {
		return errMissingToken
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret[:], nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errBadAlgorithm
	}

	iat, ok := claims["iat"]
	if !ok {
		return errMissingClaims
	}
	issuedAt, err := numericDate(iat)
	if err != nil {
		return err
	}
	if d := time.Since(issuedAt); d > v.skew || d < -v.skew {
		return errClockSkew
	}
	return nil
}

// numericDate accepts either a float64 (the usual encoding/json decoding of
// a JSON number) or a jwt.NumericDate; any other shape, a string included,
// yields errMissingClaims.
func numericDate(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0), nil
	case jwt.NumericDate:
		return t.Time, nil
	default:
		return time.Time{}, errMissingClaims
	}
}

// bearerToken extracts the token from an `Authorization: Bearer <token>`
// header value, returning "" if the header is absent or malformed.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
