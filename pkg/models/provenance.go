package models

import "context"

// ProvenanceSource represents which surface started an ingestion run.
type ProvenanceSource string

const (
	SourceHTTP ProvenanceSource = "http" // REST upload
	SourceCLI  ProvenanceSource = "cli"  // scripts/import-archive
)

// String returns the string representation of a ProvenanceSource.
func (s ProvenanceSource) String() string {
	return string(s)
}

// IsValid returns true if the source is a known provenance source.
func (s ProvenanceSource) IsValid() bool {
	switch s {
	case SourceHTTP, SourceCLI:
		return true
	default:
		return false
	}
}

// ProvenanceContext carries source and actor information through operations.
// It ends up in the lineage record of an import run.
type ProvenanceContext struct {
	Source ProvenanceSource

	// Owner is the subject of the caller's token, or a fixed name when
	// authentication is disabled.
	Owner string
}

// provenanceKey is the context key for storing provenance information.
type provenanceKey struct{}

// WithProvenance returns a new context with provenance information attached.
func WithProvenance(ctx context.Context, p ProvenanceContext) context.Context {
	return context.WithValue(ctx, provenanceKey{}, p)
}

// GetProvenance retrieves provenance information from the context.
// Returns the provenance context and true if present, otherwise a zero value and false.
func GetProvenance(ctx context.Context) (ProvenanceContext, bool) {
	p, ok := ctx.Value(provenanceKey{}).(ProvenanceContext)
	return p, ok
}

// WithHTTPProvenance returns a context with REST provenance set.
func WithHTTPProvenance(ctx context.Context, owner string) context.Context {
	return WithProvenance(ctx, ProvenanceContext{Source: SourceHTTP, Owner: owner})
}

// WithCLIProvenance returns a context with command-line provenance set.
func WithCLIProvenance(ctx context.Context, owner string) context.Context {
	return WithProvenance(ctx, ProvenanceContext{Source: SourceCLI, Owner: owner})
}
