package memoclaw

import "encoding/json"

// BeforeRequestHook runs before each logical request. Returning a non-nil
// map replaces the outgoing body for the rest of the chain.
type BeforeRequestHook func(method, path string, body map[string]any) map[string]any

// AfterResponseHook runs after each successful response. Returning a non-nil
// payload replaces the raw JSON for the rest of the chain.
type AfterResponseHook func(method, path string, payload json.RawMessage) json.RawMessage

// OnErrorHook observes every error raised by a logical request. It cannot
// suppress or replace the error.
type OnErrorHook func(method, path string, err error)

// OnBeforeRequest registers a hook invoked before each request, in
// registration order. Returns the client for chaining.
//
// Hook lists are append-only: register hooks before issuing requests, not
// concurrently with them.
func (c *Client) OnBeforeRequest(hook BeforeRequestHook) *Client {
	c.beforeHooks = append(c.beforeHooks, hook)
	return c
}

// OnAfterResponse registers a hook invoked after each successful response.
// Returns the client for chaining.
func (c *Client) OnAfterResponse(hook AfterResponseHook) *Client {
	c.afterHooks = append(c.afterHooks, hook)
	return c
}

// OnError registers a hook invoked on every error. Returns the client for
// chaining.
func (c *Client) OnError(hook OnErrorHook) *Client {
	c.errorHooks = append(c.errorHooks, hook)
	return c
}
