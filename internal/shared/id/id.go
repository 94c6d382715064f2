// Package id provides ULID-based identifiers for the service.
//
// Two kinds of identifiers exist: the per-process instance token, generated
// once at startup and attached to every log line so output from concurrently
// running instances sharing a storage root can be told apart, and per-request
// IDs for correlating a single tool invocation through the stack.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InstanceToken identifies a running server instance
type InstanceToken string

// RequestID identifies an API request
type RequestID string

const (
	InstancePrefix = "mem"
	RequestPrefix  = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	generatorOnce    sync.Once

	instance     InstanceToken
	instanceOnce sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	generatorOnce.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// Instance returns the process-wide instance token. Generated on first use,
// read-only afterward; the ULID already embeds the startup timestamp plus a
// random suffix.
func Instance() InstanceToken {
	instanceOnce.Do(func() {
		instance = InstanceToken(Default().GenerateWithPrefix(InstancePrefix))
	})
	return instance
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (t InstanceToken) String() string { return string(t) }
func (r RequestID) String() string     { return string(r) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
