// Package api implements the beacon REST surface (§6/§7), a thin
// gorilla/mux router over the chain service and typed store for the
// subset of endpoints SPEC_FULL.md's testable scenarios exercise:
// /eth/v1/node/{identity,version,syncing} and
// /eth/v1/beacon/{headers,states/{id}/finality_checkpoints}. Grounded on
// prysm's api/gateway and rpc/apimiddleware packages (gorilla/mux router,
// JSON envelope shape, error-to-status-code mapping) as named in
// SPEC_FULL.md's DOMAIN STACK table; this package intentionally does not
// reimplement prysm's full gRPC-gateway stack, only its wire contract.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/syjn99/ream-sub001/beacondb/kv"
	"github.com/syjn99/ream-sub001/blockchain"
)

var log = logrus.WithField("prefix", "api")

// Server wires the HTTP API to its backing services.
type Server struct {
	Chain   *blockchain.Service
	DB      *kv.Store
	Version string
}

// NewServer returns a Server. Version is the string reported by
// /eth/v1/node/version (e.g. "ream-sub001/v0.1.0").
func NewServer(chain *blockchain.Service, db *kv.Store, version string) *Server {
	return &Server{Chain: chain, DB: db, Version: version}
}

// Router builds the gorilla/mux router for this server's endpoint subset.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/eth/v1/node/identity", s.handleNodeIdentity).Methods(http.MethodGet)
	r.HandleFunc("/eth/v1/node/version", s.handleNodeVersion).Methods(http.MethodGet)
	r.HandleFunc("/eth/v1/node/syncing", s.handleNodeSyncing).Methods(http.MethodGet)
	r.HandleFunc("/eth/v1/beacon/headers/{block_id}", s.handleBlockHeader).Methods(http.MethodGet)
	r.HandleFunc("/eth/v1/beacon/states/{state_id}/finality_checkpoints", s.handleFinalityCheckpoints).Methods(http.MethodGet)
	return r
}

// envelope is §6's response wrapper: `{data, execution_optimistic, finalized}`.
type envelope struct {
	Data                interface{} `json:"data"`
	ExecutionOptimistic bool        `json:"execution_optimistic"`
	Finalized           bool        `json:"finalized"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, finalized bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data, ExecutionOptimistic: false, Finalized: finalized}); err != nil {
		log.WithError(err).Debug("could not encode response")
	}
}

// errorBody is the conventional {code, message} shape for non-2xx responses.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Code: status, Message: message}); err != nil {
		log.WithError(err).Debug("could not encode error response")
	}
}
