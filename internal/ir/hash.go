package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlan = "unnest/plan/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlanDigest computes the content-addressed identity of an encoded plan.
// The encoded value is canonically marshaled before hashing, so two plans
// with the same shape, columns and expressions always share a digest.
func PlanDigest(encoded any) (string, error) {
	canonical, err := MarshalCanonical(encoded)
	if err != nil {
		return "", fmt.Errorf("PlanDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// MustPlanDigest is like PlanDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPlanDigest(encoded any) string {
	digest, err := PlanDigest(encoded)
	if err != nil {
		panic(err)
	}
	return digest
}

// PlanDigestBytes hashes an already canonical plan encoding. It agrees
// with PlanDigest on the value the bytes were marshaled from.
func PlanDigestBytes(canonical []byte) string {
	return hashWithDomain(DomainPlan, canonical)
}
