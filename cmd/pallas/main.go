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

// Command pallas runs the Engine API driver and sealing subsystem: it wires
// the Merge Latch, Payload Cache, Payload Assembler, Chain Inserter and
// Fork-Choice Coordinator to an in-memory reference chain and serves the
// Engine JSON-RPC surface over HTTP and WebSocket.
package main

import (
	"crypto/ecdsa"
	crand "crypto/rand"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/pallaschain/pallas/config"
	"github.com/pallaschain/pallas/consensus/clique"
	"github.com/pallaschain/pallas/consensus/merge"
	"github.com/pallaschain/pallas/core/chainsim"
	"github.com/pallaschain/pallas/eth/catalyst"
	"github.com/pallaschain/pallas/miner"
	"github.com/pallaschain/pallas/rpc"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the pallas TOML configuration file",
		Value:   "pallas.toml",
	}
	listenFlag = &cli.StringFlag{
		Name:  "engine.addr",
		Usage: "override the configured Engine API listen address",
	}
	devFlag = &cli.BoolFlag{
		Name:  "dev",
		Usage: "run with an ephemeral signer key and a terminal total difficulty of 10, ignoring engine.jwt_secret_path",
	}
)

func main() {
	app := &cli.App{
		Name:   "pallas",
		Usage:  "Engine API driver and sealing subsystem",
		Flags:  []cli.Flag{configFlag, listenFlag, devFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var cfg *config.Config
	if c.Bool(devFlag.Name) {
		cfg = devConfig()
	} else {
		loaded, err := config.Load(c.String(configFlag.Name))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if addr := c.String(listenFlag.Name); addr != "" {
		cfg.Engine.ListenAddr = addr
	}

	ttd, err := cfg.Chain.ParsedTerminalTotalDifficulty()
	if err != nil {
		return err
	}
	terminalBlockHash, err := cfg.Chain.ParsedTerminalBlockHash()
	if err != nil {
		return err
	}

	genesisCfg := chainsim.DefaultGenesisConfig()
	genesisCfg.TerminalTotalDifficulty = ttd
	genesis := chainsim.NewGenesisBlock(genesisCfg)

	chain := chainsim.NewChain(genesis)
	exec := chainsim.NewStubExecutor(chain)
	pool := chainsim.NewStubPool()
	m := miner.New(chain, exec, pool)
	merger := merge.New()

	api := catalyst.NewConsensusAPI(chain, exec, pool, m, merger, ttd, terminalBlockHash, cfg.Chain.TerminalBlockNumber, cfg.Engine.PayloadCacheN)
	defer api.Stop()

	key, err := signerKey(c, cfg)
	if err != nil {
		return err
	}
	signer := clique.NewSigner(key)
	sealer := miner.NewSealer(chain, exec, pool, signer, merger, cfg.Clique.Period())
	sealer.Start()
	defer sealer.Stop()

	secret, err := engineSecret(c, cfg)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}

	server := rpc.NewServer(api, rpc.Config{JWTSecret: secret, CORSAllowed: cfg.Engine.CORSAllowed})
	log.Info("Engine API server listening", "addr", cfg.Engine.ListenAddr, "signer", signer.Address())
	return server.ListenAndServe(cfg.Engine.ListenAddr)
}

// signerKey returns the ECDSA key the Sealing Loop signs blocks with: a
// fresh ephemeral key in --dev mode, or the hex-encoded key configured in
// cfg.Clique.SignerKeyHex otherwise.
func signerKey(c *cli.Context, cfg *config.Config) (*ecdsa.PrivateKey, error) {
	if c.Bool(devFlag.Name) || cfg.Clique.SignerKeyHex == "" {
		return crypto.GenerateKey()
	}
	return crypto.HexToECDSA(cfg.Clique.SignerKeyHex)
}

// engineSecret returns the JWT secret the Engine API transport authenticates
// against: a freshly generated secret logged to stdout in --dev mode (no
// consensus client could know it in advance otherwise), or the configured
// secret file's contents.
func engineSecret(c *cli.Context, cfg *config.Config) ([32]byte, error) {
	if c.Bool(devFlag.Name) {
		var secret [32]byte
		if _, err := crand.Read(secret[:]); err != nil {
			return secret, err
		}
		log.Info("Generated ephemeral JWT secret for --dev mode", "secret", hexutil.Encode(secret[:]))
		return secret, nil
	}
	return cfg.Engine.JWTSecret()
}

// devConfig returns a configuration suitable for --dev mode: a low terminal
// total difficulty so the demo crosses the merge within a handful of ticks,
// and no key or secret files, since in --dev mode signerKey and engineSecret
// generate ephemeral ones. The server still verifies JWTs against the
// logged ephemeral secret.
func devConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			ListenAddr:    "127.0.0.1:8551",
			CORSAllowed:   []string{"*"},
			PayloadCacheN: 10,
		},
		Chain: config.ChainConfig{
			TerminalTotalDifficulty: "10",
		},
		Clique: config.CliqueConfig{
			PeriodSeconds: 5,
		},
	}
}
