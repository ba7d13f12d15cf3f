package enums

import "fmt"

// PromotionScope decides which catalog items a promotion can discount.
type PromotionScope string

const (
	PromotionScopeSystemWide     PromotionScope = "SYSTEM_WIDE"
	PromotionScopeSellerSpecific PromotionScope = "SELLER_SPECIFIC"
	PromotionScopeBookSpecific   PromotionScope = "BOOK_SPECIFIC"
)

var validPromotionScopes = []PromotionScope{
	PromotionScopeSystemWide,
	PromotionScopeSellerSpecific,
	PromotionScopeBookSpecific,
}

// String implements fmt.Stringer.
func (s PromotionScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionScope.
func (s PromotionScope) IsValid() bool {
	for _, candidate := range validPromotionScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsSellerOwned reports whether promotions of this scope belong to a store.
func (s PromotionScope) IsSellerOwned() bool {
	return s == PromotionScopeSellerSpecific || s == PromotionScopeBookSpecific
}

// ParsePromotionScope converts raw input into a PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	for _, candidate := range validPromotionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}

// PromotionStatus is the approval lifecycle of a promotion.
type PromotionStatus string

const (
	PromotionStatusInactive PromotionStatus = "INACTIVE"
	PromotionStatusActive   PromotionStatus = "ACTIVE"
	PromotionStatusRejected PromotionStatus = "REJECTED"
	PromotionStatusExpired  PromotionStatus = "EXPIRED"
)

var validPromotionStatuses = []PromotionStatus{
	PromotionStatusInactive,
	PromotionStatusActive,
	PromotionStatusRejected,
	PromotionStatusExpired,
}

// String implements fmt.Stringer.
func (s PromotionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionStatus.
func (s PromotionStatus) IsValid() bool {
	for _, candidate := range validPromotionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an operator may move a promotion from s to next.
// Only INACTIVE promotions can be approved or rejected; REJECTED and EXPIRED are terminal.
func (s PromotionStatus) CanTransitionTo(next PromotionStatus) bool {
	switch s {
	case PromotionStatusInactive:
		return next == PromotionStatusActive || next == PromotionStatusRejected
	case PromotionStatusActive:
		return next == PromotionStatusInactive || next == PromotionStatusExpired
	default:
		return false
	}
}

// ParsePromotionStatus converts raw input into a PromotionStatus.
func ParsePromotionStatus(value string) (PromotionStatus, error) {
	for _, candidate := range validPromotionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion status %q", value)
}
