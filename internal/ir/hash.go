package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content identity. The version suffix leaves room for
// a future algorithm change.
const (
	DomainDocument = "timeline/document/v1"
	DomainTrace    = "timeline/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash identifies a document by content. Two documents that differ
// only in description or field order hash the same.
func DocumentHash(doc *Document) (string, error) {
	canonical, err := MarshalCanonical(doc.Canonical())
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// TraceHash identifies one trace record of a run. The store uses it to tell
// a replayed write from a conflicting one.
func TraceHash(runID string, seq int64, kind string, detail Object) (string, error) {
	if detail == nil {
		detail = Object{}
	}
	obj := Object{
		"run_id": String(runID),
		"seq":    Int(seq),
		"kind":   String(kind),
		"detail": detail,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDocumentHash(doc *Document) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
