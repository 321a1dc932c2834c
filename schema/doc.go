// Package schema normalizes backend-declared node-type schemas into the
// three derived views the builder UI consumes: a default-valued object
// tree, a nested metadata tree addressable by dotted path, and a flat
// constraints map for form validation.
//
// The input is a raw JSON-Schema-like document decoded into map[string]any,
// either a single schema or a node-type catalog keyed by category. The
// document is treated as immutable; every destructive transform works on a
// defensive copy.
package schema
