package memoclaw

import (
	"context"
	"net/http"
)

// PaymentResolver turns a 402 response into supplementary request headers
// that satisfy the payment requirement, typically via the x402 protocol.
//
// Resolvers are invoked at most once per logical request. A resolver that
// cannot help returns (nil, nil); the transport then surfaces the original
// 402 as a typed error. Resolver errors are treated the same way and are
// never propagated to the caller.
type PaymentResolver interface {
	PaymentHeaders(ctx context.Context, resp *http.Response) (map[string]string, error)
}

// PaymentResolverFunc adapts a function to the PaymentResolver interface.
type PaymentResolverFunc func(ctx context.Context, resp *http.Response) (map[string]string, error)

// PaymentHeaders implements PaymentResolver.
func (f PaymentResolverFunc) PaymentHeaders(ctx context.Context, resp *http.Response) (map[string]string, error) {
	return f(ctx, resp)
}

// resolvePayment is the soft-fail wrapper around the configured resolver.
// No resolver, a nil header set, or a resolver error all mean "unavailable".
func resolvePayment(ctx context.Context, resolver PaymentResolver, resp *http.Response) map[string]string {
	if resolver == nil {
		return nil
	}
	headers, err := resolver.PaymentHeaders(ctx, resp)
	if err != nil || len(headers) == 0 {
		return nil
	}
	return headers
}
