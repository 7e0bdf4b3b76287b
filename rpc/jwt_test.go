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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret [32]byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString(secret[:])
	require.NoError(t, err)
	return s
}

func TestJWTVerifierAcceptsFreshToken(t *testing.T) {
	var secret [32]byte
	secret[0] = 0x42
	v := NewJWTVerifier(secret, 5*time.Second)

	token := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()})
	require.NoError(t, v.Verify(token))
}

func TestJWTVerifierRejectsMissingToken(t *testing.T) {
	var secret [32]byte
	v := NewJWTVerifier(secret, 5*time.Second)
	require.ErrorIs(t, v.Verify(""), errMissingToken)
}

func TestJWTVerifierRejectsNoneAlgorithm(t *testing.T) {
	var secret [32]byte
	v := NewJWTVerifier(secret, 5*time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"iat": time.Now().Unix()})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Error(t, v.Verify(s))
}

func TestJWTVerifierRejectsWrongSecret(t *testing.T) {
	var secret, other [32]byte
	secret[0] = 1
	other[0] = 2
	v := NewJWTVerifier(secret, 5*time.Second)

	token := sign(t, other, jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()})
	require.Error(t, v.Verify(token))
}

func TestJWTVerifierRejectsClockSkew(t *testing.T) {
	var secret [32]byte
	v := NewJWTVerifier(secret, 5*time.Second)

	tooOld := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Add(-10 * time.Second).Unix()})
	require.ErrorIs(t, v.Verify(tooOld), errClockSkew)

	tooNew := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Add(10 * time.Second).Unix()})
	require.ErrorIs(t, v.Verify(tooNew), errClockSkew)
}

func TestJWTVerifierAcceptsWithinSkewBoundary(t *testing.T) {
	var secret [32]byte
	v := NewJWTVerifier(secret, 5*time.Second)

	token := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Add(4 * time.Second).Unix()})
	require.NoError(t, v.Verify(token))
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "", bearerToken("abc"))
	require.Equal(t, "", bearerToken(""))
}
