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

// Package config loads the TOML configuration file the CLI entrypoint reads
// before wiring a ConsensusAPI and its transport.
package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// Config is the full on-disk configuration for a pallas node: the Engine
// API listen address, its JWT secret, CORS allow-list, and the genesis/
// transition parameters the Fork-Choice Coordinator and Merge Latch need.
type Config struct {
	Engine EngineConfig
	Chain  ChainConfig
	Clique CliqueConfig
}

// EngineConfig controls the Engine API transport.
type EngineConfig struct {
	ListenAddr    string   `toml:"listen_addr"`
	JWTSecretPath string   `toml:"jwt_secret_path"`
	CORSAllowed   []string `toml:"cors_allowed"`
	PayloadCacheN int      `toml:"payload_cache_capacity"`
}

// ChainConfig carries the merge-transition parameters compared bit-exactly
// against the values a consensus client presents in
// exchangeTransitionConfiguration.
type ChainConfig struct {
	TerminalTotalDifficulty string `toml:"terminal_total_difficulty"` // decimal string; *big.Int overflows TOML's int64
	TerminalBlockHash       string `toml:"terminal_block_hash"`
	TerminalBlockNumber     uint64 `toml:"terminal_block_number"`
}

// CliqueConfig controls the pre-merge Sealing Loop.
type CliqueConfig struct {
	PeriodSeconds uint64 `toml:"period_seconds"`
	SignerKeyHex  string `toml:"signer_key_hex"`
}

// defaultConfig mirrors the values core/chainsim.DefaultGenesisConfig uses,
// so a freshly generated config file and the bundled demo node agree.
func defaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			ListenAddr:    "127.0.0.1:8551",
			CORSAllowed:   []string{},
			PayloadCacheN: 10,
		},
		Chain: ChainConfig{
			TerminalTotalDifficulty: "10",
		},
		Clique: CliqueConfig{
			PeriodSeconds: 15,
		},
	}
}

// Load reads and parses the TOML configuration file at path, filling in any
// field TOML leaves at its zero value with defaultConfig's values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := defaultConfig()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// ParsedTerminalTotalDifficulty parses the configured decimal TTD string.
func (c *ChainConfig) ParsedTerminalTotalDifficulty() (*big.Int, error) {
	ttd, ok := new(big.Int).SetString(c.TerminalTotalDifficulty, 10)
	if !ok {
		return nil, fmt.Errorf("invalid terminal_total_difficulty %q: not a decimal integer", c.TerminalTotalDifficulty)
	}
	return ttd, nil
}

// ParsedTerminalBlockHash parses the configured terminal block hash, which
// may be left empty when the transition is triggered by difficulty alone.
func (c *ChainConfig) ParsedTerminalBlockHash() (common.Hash, error) {
	if c.TerminalBlockHash == "" {
		return common.Hash{}, nil
	}
	if len(strings.TrimPrefix(c.TerminalBlockHash, "0x")) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid terminal_block_hash %q", c.TerminalBlockHash)
	}
	return common.HexToHash(c.TerminalBlockHash), nil
}

// Period returns the configured Sealing Loop tick interval.
func (c *CliqueConfig) Period() time.Duration {
	return time.Duration(c.PeriodSeconds) * time.Second
}

// JWTSecret loads and decodes the 32-byte shared secret the JSON-RPC
// transport's JWTVerifier is built from. The file holds the secret as
// 0x-prefixed or bare hex, matching go-ethereum's own --authrpc.jwtsecret
// file format.
func (e *EngineConfig) JWTSecret() ([32]byte, error) {
	var secret [32]byte
	raw, err := os.ReadFile(e.JWTSecretPath)
	if err != nil {
		return secret, fmt.Errorf("reading jwt secret file: %w", err)
	}
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return secret, fmt.Errorf("decoding jwt secret: %w", err)
	}
	if len(decoded) != 32 {
		return secret, fmt.Errorf("jwt secret must be 32 bytes, got %d", len(decoded))
	}
	copy(secret[:], decoded)
	return secret, nil
}
