package apiserver

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/numo-labs/zkclob-core/internal/params"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
	"github.com/numo-labs/zkclob-core/pkg/xmath"
)

func testServer(t *testing.T) (*Server, clobtypes.Hash) {
	t.Helper()
	registry := params.NewRulesRegistry()
	marketID := clobtypes.HashFromBytes([]byte("server-test-market"))
	rules := &clobtypes.Rules{
		BaseAssetID:  clobtypes.HashFromBytes([]byte("base")),
		QuoteAssetID: clobtypes.HashFromBytes([]byte("quote")),
		PriceScale:   clobtypes.PriceScale,
		TickSize:     xmath.FromUint64(1),
		LotSize:      xmath.FromUint64(1),
		TakerFeeBps:  5,
		MakerFeeBps:  0,
		MaxBalance:   xmath.FromUint64(1_000_000),
	}
	if err := registry.Register(marketID, rules); err != nil {
		t.Fatalf("register market: %v", err)
	}

	tree := merkle.NewSparseMerkleTree()
	logger := zap.NewNop()
	s := NewServer(logger, registry, func() *merkle.SparseMerkleTree { return tree })
	return s, marketID
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleGetMarketsListsRegistered(t *testing.T) {
	s, marketID := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil)
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var markets []MarketInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &markets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("len(markets) = %d, want 1", len(markets))
	}
	if markets[0].MarketID != hex.EncodeToString(marketID.Bytes()) {
		t.Fatalf("market id = %s, want %s", markets[0].MarketID, hex.EncodeToString(marketID.Bytes()))
	}
}

func TestHandleGetBookUnknownMarketReturns404(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/markets/"+strings.Repeat("ff", 32)+"/book", nil)
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSubmitBatchEnqueuesMessages(t *testing.T) {
	s, marketID := testServer(t)
	body := `[{"kind":"cancel","trader":"0x0000000000000000000000000000000000000001","nonce":1,"order_id":"` + strings.Repeat("11", 32) + `","signature":"` + strings.Repeat("22", 65) + `"}]`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/markets/"+hex.EncodeToString(marketID.Bytes())+"/batches", strings.NewReader(body))
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Admitted != 1 || resp.QueueLen != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if s.QueueFor(marketID).Len() != 1 {
		t.Fatalf("queue len = %d, want 1", s.QueueFor(marketID).Len())
	}
}

