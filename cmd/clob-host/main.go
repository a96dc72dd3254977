// Command clob-host is the host-side driver: it loads a JSON batch vector,
// builds the authenticated tree and signed message set, runs the batch
// through the matching engine while recording proofs, replays the same
// bundle through the in-process guest driver as a consistency check, writes
// an output JSON, and (with -serve) keeps the resulting tree and rules
// registry alive behind the REST+WebSocket API. Grounded on
// original_source/crates/host/src/main.rs and the teacher's cmd/node/main.go
// wiring style.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/numo-labs/zkclob-core/internal/params"
	"github.com/numo-labs/zkclob-core/pkg/apiserver"
	"github.com/numo-labs/zkclob-core/pkg/batchdriver"
	"github.com/numo-labs/zkclob-core/pkg/clobstate"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/hostvectors"
	"github.com/numo-labs/zkclob-core/pkg/matching"
	"github.com/numo-labs/zkclob-core/pkg/merkle"
	"github.com/numo-labs/zkclob-core/pkg/obslog"
	"github.com/numo-labs/zkclob-core/pkg/outputs"
	"github.com/numo-labs/zkclob-core/pkg/signing"
	"github.com/numo-labs/zkclob-core/pkg/treestore"
)

func main() {
	inputPath := flag.String("input", "", "path to the batch vector JSON file")
	outputPath := flag.String("output", "output.json", "path to write the output JSON")
	envPath := flag.String("env", "", "path to a .env file (optional)")
	serve := flag.Bool("serve", false, "keep running and serve the REST+WS API after the batch commits")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "clob-host: -input is required")
		os.Exit(1)
	}

	cfg := params.LoadFromEnv(*envPath)
	logger, err := obslog.NewWithFile(*logLevel, cfg.Driver.BatchLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clob-host: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := runBatch(cfg, logger, *inputPath, *outputPath, *serve); err != nil {
		logger.Error("batch run failed", zap.Error(err))
		os.Exit(1)
	}
}

func runBatch(cfg params.Config, logger *zap.Logger, inputPath, outputPath string, serve bool) error {
	vector, err := hostvectors.LoadInputFile(inputPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	venueID, err := decodeHash32(vector.VenueID)
	if err != nil {
		return fmt.Errorf("venue_id: %w", err)
	}
	marketID, err := decodeHash32(vector.MarketID)
	if err != nil {
		return fmt.Errorf("market_id: %w", err)
	}
	daCommitment, err := decodeHash32(vector.DACommitment)
	if err != nil {
		return fmt.Errorf("da_commitment: %w", err)
	}
	rules, err := hostvectors.BuildRules(vector.Rules)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	store, err := treestore.Open(cfg.Driver.TreeStorePath)
	if err != nil {
		return fmt.Errorf("open tree store: %w", err)
	}
	defer store.Close()

	tree := merkle.NewSparseMerkleTree()
	if err := hostvectors.PopulateTree(tree, vector.State, marketID); err != nil {
		return fmt.Errorf("populate tree: %w", err)
	}
	prevRoot := tree.Root()

	recState := clobstate.NewRecordingState(tree)
	domainSep := signing.DomainSeparator(vector.ChainID, venueID, marketID)

	messages, err := hostvectors.BuildMessages(vector.Batch, domainSep)
	if err != nil {
		return fmt.Errorf("build messages: %w", err)
	}

	output, err := matching.ApplyBatch(recState, marketID, rules, domainSep, messages)
	if err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}

	tradesRoot := outputs.TradesRoot(output.Trades)
	feesRoot := outputs.FeesRoot(output.FeeTotals)
	rulesHash := signing.RulesHash(rules)

	msgHashes := make([][32]byte, len(messages))
	for i, m := range messages {
		msgHashes[i] = signing.MessageHash(domainSep, &m.Message)
	}
	batchDigest := signing.BatchDigest(domainSep, vector.BatchSeq, msgHashes)

	guestInput := clobtypes.GuestInput{
		Public: clobtypes.PublicInputsPartial{
			PrevRoot:        clobtypes.HashFromBytes(prevRoot[:]),
			BatchDigest:     clobtypes.HashFromBytes(batchDigest[:]),
			RulesHash:       clobtypes.HashFromBytes(rulesHash[:]),
			DomainSeparator: clobtypes.HashFromBytes(domainSep[:]),
			BatchSeq:        vector.BatchSeq,
			BatchTimestamp:  vector.BatchTimestamp,
			DACommitment:    daCommitment,
		},
		ChainID:  vector.ChainID,
		VenueID:  venueID,
		MarketID: marketID,
		Rules:    *rules,
		Messages: messages,
	}
	bundle := &clobtypes.GuestBundle{Input: guestInput, Proofs: recState.Proofs}

	result, err := batchdriver.Run(bundle)
	if err != nil {
		return fmt.Errorf("guest replay failed consistency check: %w", err)
	}
	if result.Public.NewRoot != clobtypes.HashFromBytes(recState.Root[:]) {
		return fmt.Errorf("guest replay root mismatch: host=%x guest=%x", recState.Root, result.Public.NewRoot)
	}

	if err := store.SaveLeaves(collectTouched(tree, recState.Proofs)); err != nil {
		return fmt.Errorf("persist leaves: %w", err)
	}
	if err := store.SaveRoot(recState.Root); err != nil {
		return fmt.Errorf("persist root: %w", err)
	}
	if err := store.SaveBatch(result.Public); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}

	logger.Info("batch committed",
		zap.String("market_id", hex.EncodeToString(marketID.Bytes())),
		zap.Uint64("batch_seq", vector.BatchSeq),
		zap.Int("message_count", len(messages)),
		zap.Int("trade_count", len(output.Trades)),
		zap.String("new_root", hex.EncodeToString(recState.Root[:])),
	)

	outputFile := hostvectors.OutputFile{
		PrevRoot:        hexPrefixed(prevRoot[:]),
		NewRoot:         hexPrefixed(recState.Root[:]),
		BatchDigest:     hexPrefixed(batchDigest[:]),
		RulesHash:       hexPrefixed(rulesHash[:]),
		DomainSeparator: hexPrefixed(domainSep[:]),
		TradesRoot:      hexPrefixed(tradesRoot[:]),
		FeesRoot:        hexPrefixed(feesRoot[:]),
		PublicValues:    hexPrefixed(result.Public.EncodedBytes()),
		TouchedDigest:   hexPrefixed(result.TouchedDigest[:]),
	}
	data, err := json.MarshalIndent(outputFile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !serve {
		return nil
	}

	registry := params.NewRulesRegistry()
	if err := registry.Register(marketID, rules); err != nil {
		return fmt.Errorf("register market: %w", err)
	}
	server := apiserver.NewServer(logger, registry, func() *merkle.SparseMerkleTree { return tree })
	return server.Start(cfg.API.ListenAddr, cfg.API.AllowedOrigins)
}

func decodeHash32(s string) (clobtypes.Hash, error) {
	raw, err := hex.DecodeString(trimHex(s))
	if err != nil || len(raw) != 32 {
		return clobtypes.Hash{}, fmt.Errorf("expected 32-byte hex, got %q", s)
	}
	return clobtypes.HashFromBytes(raw), nil
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func hexPrefixed(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func collectTouched(tree *merkle.SparseMerkleTree, proofs []*merkle.Proof) map[[32]byte][]byte {
	touched := make(map[[32]byte][]byte, len(proofs))
	for _, p := range proofs {
		value, _ := tree.Get(p.Key)
		touched[p.Key] = value
	}
	return touched
}
