package assemble

import (
	"context"
	"fmt"
	"os"
	"strings"

	"loopbuilder/internal/engine"
	"loopbuilder/internal/paths"
)

// BatchError reports a failed concatenation batch together with the files
// that were in flight, so a broken input can be identified without re-running
// the whole assembly.
type BatchError struct {
	Batch   int
	Total   int
	Inputs  []string
	Missing []string
	Err     error
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "concat batch %d/%d failed", e.Batch+1, e.Total)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing inputs: %s)", strings.Join(e.Missing, ", "))
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *BatchError) Unwrap() error { return e.Err }

// partitionBatches splits inputs into consecutive groups of at most size,
// preserving order.
func partitionBatches(inputs []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var batches [][]string
	for len(inputs) > size {
		batches = append(batches, inputs[:size])
		inputs = inputs[size:]
	}
	if len(inputs) > 0 {
		batches = append(batches, inputs)
	}
	return batches
}

// concatBatches joins inputs in order using a two-level strategy: each group
// of at most batchSize inputs is concatenated first, then the intermediate
// outputs are joined with a stream copy. Keeping batches small bounds the
// argument list and open file count handed to the engine. A single batch
// skips the second pass.
func concatBatches(ctx context.Context, eng *engine.Engine, inputs []string, batchSize int, reencode bool) (string, error) {
	batches := partitionBatches(inputs, batchSize)

	outputs := make([]string, 0, len(batches))
	for i, batch := range batches {
		if missing := missingFiles(batch); len(missing) > 0 {
			return "", &BatchError{
				Batch:   i,
				Total:   len(batches),
				Inputs:  batch,
				Missing: missing,
				Err:     fmt.Errorf("inputs missing before concat"),
			}
		}
		out, err := eng.Concat(ctx, batch, reencode)
		if err != nil {
			return "", &BatchError{
				Batch:  i,
				Total:  len(batches),
				Inputs: batch,
				Err:    err,
			}
		}
		if err := verifyArtifact(out); err != nil {
			return "", &BatchError{Batch: i, Total: len(batches), Inputs: batch, Err: err}
		}
		outputs = append(outputs, out)
	}

	if len(outputs) == 1 {
		return outputs[0], nil
	}

	// The intermediates share a codec, so the final join is a stream copy
	// regardless of how the batches were produced.
	out, err := eng.Concat(ctx, outputs, false)
	if err != nil {
		return "", &BatchError{
			Batch:  len(batches),
			Total:  len(batches) + 1,
			Inputs: outputs,
			Err:    err,
		}
	}
	if err := verifyArtifact(out); err != nil {
		return "", &BatchError{Batch: len(batches), Total: len(batches) + 1, Inputs: outputs, Err: err}
	}
	return out, nil
}

func verifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("concat output missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("concat output %s is empty", path)
	}
	return nil
}

func missingFiles(inputs []string) []string {
	var missing []string
	for _, path := range inputs {
		ok, err := paths.FileExists(path)
		if err != nil || !ok {
			missing = append(missing, path)
		}
	}
	return missing
}
