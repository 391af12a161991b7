package payment

import "context"

// ProofInspector looks up an out-of-band payment reference and reports what
// the processor knows about it. The answer is advisory only.
type ProofInspector interface {
	Inspect(ctx context.Context, reference string) string
}
