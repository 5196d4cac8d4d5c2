package experience

import (
	"fmt"
	"strings"

	"github.com/jonathan/bullet-ranker/internal/types"
)

// NormalizeExperienceBank applies all normalization steps in order:
// fingerprint and feature derivation, fingerprint dedup within each role,
// and role-set validation.
func NormalizeExperienceBank(bank *types.ExperienceBank) error {
	ComputeFingerprints(bank)
	DeduplicateBullets(bank)

	if err := types.ValidateRoles(bank.Roles); err != nil {
		return &LoadError{Message: "invalid role set", Cause: err}
	}
	return ValidateBulletOwnership(bank)
}

// ComputeFingerprints fills in missing fingerprints and feature flags from
// the bullet text.
func ComputeFingerprints(bank *types.ExperienceBank) {
	for i := range bank.Bullets {
		b := &bank.Bullets[i]
		b.Text = strings.TrimSpace(b.Text)
		if b.Fingerprint == "" {
			b.Fingerprint = types.NormalizeFingerprint(b.Text)
		}
		if b.Features == (types.BulletFeatures{}) {
			b.Features = types.ExtractFeatures(b.Text)
		}
		if b.State == "" {
			b.State = types.EmbeddingPending
		}
	}
}

// DeduplicateBullets drops bullets whose fingerprint already appeared within
// the same role, keeping the first occurrence. Two bullets that differ only
// in their numbers count as duplicates.
func DeduplicateBullets(bank *types.ExperienceBank) {
	seen := make(map[string]struct{}, len(bank.Bullets))
	kept := bank.Bullets[:0]
	for _, b := range bank.Bullets {
		key := b.RoleID + "\x00" + b.Fingerprint
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, b)
	}
	bank.Bullets = kept
}

// ValidateBulletOwnership checks that every bullet references a known role.
func ValidateBulletOwnership(bank *types.ExperienceBank) error {
	roles := make(map[string]struct{}, len(bank.Roles))
	for _, r := range bank.Roles {
		roles[r.ID] = struct{}{}
	}
	for _, b := range bank.Bullets {
		if _, ok := roles[b.RoleID]; !ok {
			return &LoadError{
				Message: fmt.Sprintf("bullet %s references unknown role %s", b.ID, b.RoleID),
			}
		}
	}
	return nil
}
