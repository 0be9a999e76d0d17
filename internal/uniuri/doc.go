// Package uniuri generates cryptographically secure random identifier
// strings, rejection sampled to avoid modulo bias. Used for web token ids.
package uniuri
