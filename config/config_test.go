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

package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const sample = `
[engine]
listen_addr = "0.0.0.0:8551"
jwt_secret_path = "jwt.hex"
cors_allowed = ["http://localhost:3000"]

[chain]
terminal_total_difficulty = "58750000000000000000000"
terminal_block_hash = "0x000000000000000000000000000000000000000000000000000000000000002a"
terminal_block_number = 15537393

[clique]
period_seconds = 5
`

func writeTemp(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadParsesConfiguredFields(t *testing.T) {
	path := writeTemp(t, "pallas.toml", sample)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8551", cfg.Engine.ListenAddr)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Engine.CORSAllowed)
	require.Equal(t, uint64(15537393), cfg.Chain.TerminalBlockNumber)
	require.Equal(t, uint64(5), cfg.Clique.PeriodSeconds)

	ttd, err := cfg.Chain.ParsedTerminalTotalDifficulty()
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("58750000000000000000000", 10)
	require.Equal(t, want, ttd)

	hash, err := cfg.Chain.ParsedTerminalBlockHash()
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0x000000000000000000000000000000000000000000000000000000000000002a"), hash)
}

func TestLoadFillsDefaultsForMissingFields(t *testing.T) {
	path := writeTemp(t, "pallas.toml", `[engine]
listen_addr = "127.0.0.1:9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Engine.ListenAddr)
	require.Equal(t, 10, cfg.Engine.PayloadCacheN)
	require.Equal(t, uint64(15), cfg.Clique.PeriodSeconds)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParsedTerminalBlockHashEmpty(t *testing.T) {
	var c ChainConfig
	hash, err := c.ParsedTerminalBlockHash()
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, hash)
}

func TestJWTSecretRoundTrip(t *testing.T) {
	path := writeTemp(t, "jwt.hex", "0x"+"11"+"22"+"33"+"44"+"55"+"66"+"77"+"88"+"99"+"aa"+"bb"+"cc"+"dd"+"ee"+"ff"+"00"+"11"+"22"+"33"+"44"+"55"+"66"+"77"+"88"+"99"+"aa"+"bb"+"cc"+"dd"+"ee"+"ff"+"00")
	e := EngineConfig{JWTSecretPath: path}
	secret, err := e.JWTSecret()
	require.NoError(t, err)
	require.Equal(t, byte(0x11), secret[0])
	require.Equal(t, byte(0x00), secret[31])
}

func TestJWTSecretRejectsWrongLength(t *testing.T) {
	path := writeTemp(t, "jwt.hex", "0x1234")
	e := EngineConfig{JWTSecretPath: path}
	_, err := e.JWTSecret()
	require.Error(t, err)
}
