package domain

import "fmt"

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusActive    Status = "ACTIVE"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusReversed  Status = "REVERSED"
)

type Category string

const (
	CategoryProduct    Category = "PRODUCT"
	CategoryMarketing  Category = "MARKETING"
	CategorySales      Category = "SALES"
	CategoryHiring     Category = "HIRING"
	CategoryTech       Category = "TECH"
	CategoryOperations Category = "OPERATIONS"
	CategoryStrategic  Category = "STRATEGIC"
	CategoryOther      Category = "OTHER"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryProduct, CategoryMarketing, CategorySales, CategoryHiring,
	CategoryTech, CategoryOperations, CategoryStrategic, CategoryOther,
}

func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Privacy string

const (
	PrivacyWorkspace       Privacy = "workspace"
	PrivacyPublic          Privacy = "public"
	PrivacyAnonymousPublic Privacy = "anonymous_public"
)

type PlanTier string

const (
	PlanFree       PlanTier = "FREE"
	PlanPro        PlanTier = "PRO"
	PlanTeam       PlanTier = "TEAM"
	PlanEnterprise PlanTier = "ENTERPRISE"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// IsTerminal reports whether a status permits no further transition.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// EnsureTransition enforces the monotone lifecycle
// DRAFT -> ACTIVE -> {SUCCEEDED | FAILED | REVERSED}.
func EnsureTransition(oldStatus, newStatus Status) error {
	switch oldStatus {
	case StatusDraft:
		if newStatus == StatusActive {
			return nil
		}
	case StatusActive:
		if newStatus == StatusSucceeded || newStatus == StatusFailed || newStatus == StatusReversed {
			return nil
		}
	}
	return fmt.Errorf("invalid decision status transition %s -> %s", oldStatus, newStatus)
}

// ValidateLink rejects self-references and duplicate (type, target) pairs.
func ValidateLink(d Decision, l Link) error {
	if l.TargetID == "" || l.Type == "" {
		return fmt.Errorf("link type and target are required")
	}
	if l.TargetID == d.ID {
		return fmt.Errorf("decision cannot link to itself")
	}
	for _, existing := range d.Links {
		if existing.Type == l.Type && existing.TargetID == l.TargetID {
			return fmt.Errorf("duplicate %s link to %s", l.Type, l.TargetID)
		}
	}
	return nil
}
