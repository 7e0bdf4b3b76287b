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
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/ethereum/go-ethereum/log"

	"github.com/pallaschain/pallas/beacon/engine"
)

// Backend is the subset of eth/catalyst.ConsensusAPI this transport drives.
// Declaring it here instead of importing *catalyst.ConsensusAPI keeps the
// transport ignorant of how the methods are implemented.
type Backend interface {
	NewPayloadV1(params engine.ExecutableData) (engine.PayloadStatusV1, error)
	ForkchoiceUpdatedV1(state engine.ForkchoiceStateV1, attrs *engine.PayloadAttributes) (engine.ForkChoiceResponse, error)
	GetPayloadV1(payloadID engine.PayloadID) (*engine.ExecutionPayloadEnvelope, error)
	ExchangeTransitionConfigurationV1(config engine.TransitionConfigurationV1) (*engine.TransitionConfigurationV1, error)
	ExchangeCapabilities(capabilities []string) []string
}

// headerReadTimeout bounds how long a client may take to send its request
// headers.
const headerReadTimeout = 10 * time.Second

// wsUpgradeTimeout bounds the WebSocket handshake itself.
const wsUpgradeTimeout = 10 * time.Second

// Server is the purpose-built HTTP+WebSocket JSON-RPC 2.0 server for the
// engine namespace.
type Server struct {
	backend  Backend
	verifier *JWTVerifier
	cors     *cors.Cors
	upgrader websocket.Upgrader
}

// Config controls CORS and auth for a Server.
type Config struct {
	JWTSecret     [32]byte
	CORSAllowed   []string
	SkewTolerance time.Duration
}

// NewServer builds a Server dispatching to backend, authenticated with a
// JWTVerifier built from cfg.JWTSecret and CORS-restricted to cfg.CORSAllowed.
func NewServer(backend Backend, cfg Config) *Server {
	skew := cfg.SkewTolerance
	if skew == 0 {
		skew = 5 * time.Second
	}
	allowed := cfg.CORSAllowed
	if allowed == nil {
		allowed = []string{}
	}
	return &Server{
		backend:  backend,
		verifier: NewJWTVerifier(cfg.JWTSecret, skew),
		cors:     cors.New(cors.Options{AllowedOrigins: allowed, AllowedMethods: []string{http.MethodPost}}),
		upgrader: websocket.Upgrader{HandshakeTimeout: wsUpgradeTimeout, CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Handler returns an http.Handler serving both HTTP POST JSON-RPC and
// WebSocket upgrade requests on the same listener, CORS- and JWT-gated.
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(http.HandlerFunc(s.serveHTTP))
}

// ListenAndServe serves the Engine API on addr until the listener fails,
// with the header-read timeout applied at the transport layer.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: headerReadTimeout,
	}
	return srv.ListenAndServe()
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := s.verifier.Verify(token); err != nil {
		log.Warn("engine api auth rejected", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	s.serveOnce(w, r)
}

func (s *Server) serveOnce(w http.ResponseWriter, r *http.Request) {
	var req request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeResponse(w, parseError(nil, "invalid json: "+err.Error()))
		return
	}
	resp := s.dispatch(r.Context(), &req)
	writeResponse(w, resp)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("engine api websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.dispatch(r.Context(), &req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func writeResponse(w http.ResponseWriter, resp *response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// dispatch routes a single JSON-RPC request to the matching Engine API
// method. Requests on one connection are handled strictly in the order
// received; the Backend itself serializes concurrent calls across
// connections via its own locks.
func (s *Server) dispatch(ctx context.Context, req *request) *response {
	if req.JSONRPC != jsonrpcVersion {
		return parseError(req.ID, "invalid jsonrpc version")
	}

	switch req.Method {
	case "engine_newPayloadV1":
		var params [1]engine.ExecutableData
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return invalidParamsError(req.ID, err.Error())
		}
		result, err := s.backend.NewPayloadV1(params[0])
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	case "engine_forkchoiceUpdatedV1":
		var state engine.ForkchoiceStateV1
		var attrs *engine.PayloadAttributes
		var raw []json.RawMessage
		if err := json.Unmarshal(req.Params, &raw); err != nil || len(raw) == 0 {
			return invalidParamsError(req.ID, "expected [forkchoiceState, payloadAttributes?]")
		}
		if err := json.Unmarshal(raw[0], &state); err != nil {
			return invalidParamsError(req.ID, err.Error())
		}
		if len(raw) > 1 {
			if err := json.Unmarshal(raw[1], &attrs); err != nil {
				return invalidParamsError(req.ID, err.Error())
			}
		}
		result, err := s.backend.ForkchoiceUpdatedV1(state, attrs)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	case "engine_getPayloadV1":
		var params [1]engine.PayloadID
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return invalidParamsError(req.ID, err.Error())
		}
		result, err := s.backend.GetPayloadV1(params[0])
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	case "engine_exchangeTransitionConfigurationV1":
		var params [1]engine.TransitionConfigurationV1
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return invalidParamsError(req.ID, err.Error())
		}
		result, err := s.backend.ExchangeTransitionConfigurationV1(params[0])
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	case "engine_exchangeCapabilities":
		var params [1][]string
		_ = json.Unmarshal(req.Params, &params)
		return resultResponse(req.ID, s.backend.ExchangeCapabilities(params[0]))

	default:
		return methodNotFound(req.ID, req.Method)
	}
}
