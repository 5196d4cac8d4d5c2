package types

import "fmt"

// Role represents a work experience entry that owns a set of bullets
type Role struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	OrderIndex int    `json:"order_index"` // 0 = most recent
	MaxBullets int    `json:"max_bullets"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

// ValidateRoles checks the role-set invariant: order indices are unique and
// non-negative, so recency scoring has a well-defined ordering.
func ValidateRoles(roles []Role) error {
	seen := make(map[int]string, len(roles))
	for _, role := range roles {
		if role.OrderIndex < 0 {
			return fmt.Errorf("role %s has negative order index %d", role.ID, role.OrderIndex)
		}
		if other, dup := seen[role.OrderIndex]; dup {
			return fmt.Errorf("roles %s and %s share order index %d", other, role.ID, role.OrderIndex)
		}
		seen[role.OrderIndex] = role.ID
	}
	return nil
}

// ExperienceBank represents the canonical store of roles and their bullets
type ExperienceBank struct {
	Roles   []Role   `json:"roles"`
	Bullets []Bullet `json:"bullets"`
}

// BulletsForRole returns the bullets owned by the given role, in input order.
func (b *ExperienceBank) BulletsForRole(roleID string) []Bullet {
	var out []Bullet
	for _, bullet := range b.Bullets {
		if bullet.RoleID == roleID {
			out = append(out, bullet)
		}
	}
	return out
}

// RoleByID returns the role with the given ID, or nil if absent.
func (b *ExperienceBank) RoleByID(id string) *Role {
	for i := range b.Roles {
		if b.Roles[i].ID == id {
			return &b.Roles[i]
		}
	}
	return nil
}

// MaxOrderIndex returns the highest order index across roles, or 0 when the
// bank has at most one role.
func (b *ExperienceBank) MaxOrderIndex() int {
	max := 0
	for _, role := range b.Roles {
		if role.OrderIndex > max {
			max = role.OrderIndex
		}
	}
	return max
}
