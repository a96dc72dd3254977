// Package apiserver is the host's read/submit HTTP+WebSocket API: a market
// registry lookup, an orderbook/balance read model over the current
// materialized tree, a FIFO per-market admission queue for incoming signed
// messages, and a broadcast hub for trades and roots as batches commit.
// Grounded on the teacher's pkg/api/server.go and pkg/api/websocket.go,
// generalized from one perp app instance to many markets.
package apiserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/numo-labs/zkclob-core/internal/params"
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
)

// TreeSource returns the current materialized tree for reads; the host
// driver supplies a closure over its live treestore/RecordingState so every
// request sees the latest committed state.
type TreeSource func() *merkle.SparseMerkleTree

type Server struct {
	log      *zap.Logger
	router   *mux.Router
	hub      *Hub
	registry *params.RulesRegistry
	tree     TreeSource
	queues   map[clobtypes.Hash]*BatchQueue
}

func NewServer(log *zap.Logger, registry *params.RulesRegistry, tree TreeSource) *Server {
	s := &Server{
		log:      log,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		registry: registry,
		tree:     tree,
		queues:   make(map[clobtypes.Hash]*BatchQueue),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/{marketID}/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/markets/{marketID}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/markets/{marketID}/batches", s.handleSubmitBatch).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub loop and serves addr. Blocks until the listener fails.
func (s *Server) Start(addr string, allowedOrigins []string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	s.log.Info("api server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// QueueFor returns (creating if necessary) the FIFO admission queue for
// marketID. Messages stay queued until a caller drains them with DrainUpTo;
// no code in this repository drains them into a bundle.
func (s *Server) QueueFor(marketID clobtypes.Hash) *BatchQueue {
	if q, ok := s.queues[marketID]; ok {
		return q
	}
	q := NewBatchQueue()
	s.queues[marketID] = q
	return q
}

// BroadcastTrade publishes a trade to the market's "trades:<market_id>"
// channel. Neither the batch driver nor the host CLI calls it.
func (s *Server) BroadcastTrade(t *clobtypes.TradeRecord) {
	marketID := hex.EncodeToString(t.MarketID.Bytes())
	update := TradeUpdate{
		MarketID:      marketID,
		MakerOrderID:  hex.EncodeToString(t.MakerOrderID.Bytes()),
		TakerOrderID:  hex.EncodeToString(t.TakerOrderID.Bytes()),
		Maker:         hex.EncodeToString(t.Maker.Bytes()),
		Taker:         hex.EncodeToString(t.Taker.Bytes()),
		QtyBase:       t.QtyBase.String(),
		QuoteAmt:      t.QuoteAmt.String(),
		TakerFeeQuote: t.TakerFeeQuote.String(),
	}
	s.hub.BroadcastToChannel("trades:"+marketID, update)
}

// BroadcastRoot publishes a committed batch's root transition to the
// market's "roots:<market_id>" channel.
func (s *Server) BroadcastRoot(marketID clobtypes.Hash, public *clobtypes.PublicInputs) {
	id := hex.EncodeToString(marketID.Bytes())
	update := RootUpdate{
		MarketID:   id,
		BatchSeq:   public.BatchSeq,
		PrevRoot:   hex.EncodeToString(public.PrevRoot.Bytes()),
		NewRoot:    hex.EncodeToString(public.NewRoot.Bytes()),
		TradesRoot: hex.EncodeToString(public.TradesRoot.Bytes()),
		FeesRoot:   hex.EncodeToString(public.FeesRoot.Bytes()),
	}
	s.hub.BroadcastToChannel("roots:"+id, update)
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.List()
	out := make([]MarketInfo, 0, len(ids))
	for _, id := range ids {
		rules, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, MarketInfo{
			MarketID:     hex.EncodeToString(id.Bytes()),
			BaseAssetID:  hex.EncodeToString(rules.BaseAssetID.Bytes()),
			QuoteAssetID: hex.EncodeToString(rules.QuoteAssetID.Bytes()),
			TickSize:     rules.TickSize.String(),
			LotSize:      rules.LotSize.String(),
			TakerFeeBps:  rules.TakerFeeBps,
			MakerFeeBps:  rules.MakerFeeBps,
		})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	marketID, err := marketIDFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}
	if !s.registry.Exists(marketID) {
		respondError(w, http.StatusNotFound, "market not found", "")
		return
	}

	access := &readOnlyState{tree: s.tree()}
	snapshot, err := BuildOrderbookSnapshot(access, marketID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read book", err.Error())
		return
	}
	respondJSON(w, snapshot)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	marketID, err := marketIDFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}
	rules, err := s.registry.Get(marketID)
	if err != nil {
		respondError(w, http.StatusNotFound, "market not found", err.Error())
		return
	}

	accountHex := r.URL.Query().Get("account")
	if accountHex == "" {
		respondError(w, http.StatusBadRequest, "missing account query parameter", "")
		return
	}
	accountBytes, err := hex.DecodeString(trimHexPrefix(accountHex))
	if err != nil || len(accountBytes) != 20 {
		respondError(w, http.StatusBadRequest, "invalid account", "expected 20-byte hex address")
		return
	}
	account := clobtypes.AddressFromBytes(accountBytes)

	access := &readOnlyState{tree: s.tree()}
	base, err := clobstate.GetBalance(access, account, rules.BaseAssetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read balance", err.Error())
		return
	}
	quote, err := clobstate.GetBalance(access, account, rules.QuoteAssetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read balance", err.Error())
		return
	}

	respondJSON(w, []BalanceInfo{
		{
			Account:   accountHex,
			AssetID:   hex.EncodeToString(rules.BaseAssetID.Bytes()),
			Available: base.Available.String(),
			Locked:    base.Locked.String(),
		},
		{
			Account:   accountHex,
			AssetID:   hex.EncodeToString(rules.QuoteAssetID.Bytes()),
			Available: quote.Available.String(),
			Locked:    quote.Locked.String(),
		},
	})
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	marketID, err := marketIDFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market id", err.Error())
		return
	}
	if !s.registry.Exists(marketID) {
		respondError(w, http.StatusNotFound, "market not found", "")
		return
	}

	var rawMessages []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&rawMessages); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	queue := s.QueueFor(marketID)
	queued := make([]QueuedMessage, 0, len(rawMessages))
	for _, raw := range rawMessages {
		queued = append(queued, QueuedMessage{Raw: raw})
	}
	queue.Enqueue(queued...)

	s.log.Info("batch messages admitted",
		zap.String("market_id", hex.EncodeToString(marketID.Bytes())),
		zap.Int("admitted", len(queued)),
		zap.Int("queue_len", queue.Len()),
	)

	respondJSON(w, SubmitResponse{
		Status:   "queued",
		Admitted: len(queued),
		QueueLen: queue.Len(),
	})
}

// ==============================
// Helpers
// ==============================

func marketIDFromPath(r *http.Request) (clobtypes.Hash, error) {
	vars := mux.Vars(r)
	raw, err := hex.DecodeString(trimHexPrefix(vars["marketID"]))
	if err != nil || len(raw) != 32 {
		return clobtypes.Hash{}, fmt.Errorf("expected 32-byte hex market id")
	}
	return clobtypes.HashFromBytes(raw), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: detail})
}

// readOnlyState adapts a materialized tree to clobstate.StateAccess for
// query handlers: reads never generate proofs, and writes are refused since
// no query handler should ever mutate state.
type readOnlyState struct {
	tree *merkle.SparseMerkleTree
}

func (a *readOnlyState) ReadValue(key [32]byte) ([]byte, error) {
	value, _ := a.tree.Get(key)
	return value, nil
}

func (a *readOnlyState) WriteValue(key [32]byte, value []byte) error {
	return fmt.Errorf("readOnlyState: write not permitted")
}
