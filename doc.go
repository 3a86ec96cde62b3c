// Package memoclaw is the Go SDK for the MemoClaw memory-storage API:
//
//   - Wallet-signed authentication (EIP-191 personal sign, fresh per attempt)
//   - Retries with exponential backoff + jitter and Retry-After awareness
//   - Automatic x402 payment fallback via a pluggable PaymentResolver
//   - Typed errors with actionable suggestions
//   - Fluent builders, lazy pagination, relation-graph traversal
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Configuration layering: options > environment > config file > defaults
//   - Extensibility via hooks and pluggable payment / metrics / logging
//
// Typical usage:
//
//	client, err := memoclaw.New(
//	    memoclaw.WithPrivateKey(os.Getenv("MEMOCLAW_PRIVATE_KEY")),
//	    memoclaw.WithMaxRetries(3),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Store(ctx, "User prefers dark mode", nil)
//	hits, err := client.Recall(ctx, "ui preferences", nil)
//
// Every operation takes a context.Context; cancellation interrupts backoff
// sleeps as well as in-flight requests. Errors are inspectable with
// errors.Is against a bare kind, e.g. &memoclaw.APIError{Kind: memoclaw.KindNotFound}.
package memoclaw
