// Command clob-guest is the zkVM guest entrypoint: decode a GuestBundle
// from stdin, replay it through the batch driver, and commit the resulting
// PublicInputs plus the touched-key audit digest to stdout. Grounded on
// original_source/crates/guest/src/main.rs, translated from SP1's
// io::read/commit_slice/write into plain stdin/stdout so the same core runs
// identically inside or outside a zkVM host.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/numo-labs/zkclob-core/pkg/batchdriver"
	"github.com/numo-labs/zkclob-core/pkg/clobtypes"
	"github.com/numo-labs/zkclob-core/pkg/codec"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clob-guest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	r := codec.NewReader(input)
	bundle, err := clobtypes.DecodeGuestBundle(r)
	if err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	if err := r.Finish(); err != nil {
		return fmt.Errorf("trailing bytes after bundle: %w", err)
	}

	result, err := batchdriver.Run(bundle)
	if err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}

	if _, err := os.Stdout.Write(result.Public.EncodedBytes()); err != nil {
		return fmt.Errorf("commit public inputs: %w", err)
	}
	if _, err := os.Stdout.Write(result.TouchedDigest[:]); err != nil {
		return fmt.Errorf("write touched digest: %w", err)
	}
	return nil
}
