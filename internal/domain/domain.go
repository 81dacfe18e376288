package domain

import "time"

// Alternative is an option that was considered and rejected.
type Alternative struct {
	Name        string `json:"name"`
	WhyRejected string `json:"why_rejected,omitempty"`
}

// Link relates two decisions (e.g. supersedes, blocks, informs).
type Link struct {
	Type     string `json:"type"`
	TargetID string `json:"target_decision_id"`
}

type Comment struct {
	ID          string    `json:"id"`
	DecisionID  string    `json:"decision_id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

type Decision struct {
	ID              string        `json:"id"`
	WorkspaceID     string        `json:"workspace_id"`
	Title           string        `json:"title"`
	Category        Category      `json:"category"`
	Decision        string        `json:"decision"`
	Context         string        `json:"context,omitempty"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	Assumptions     []string      `json:"assumptions,omitempty"`
	SuccessCriteria []string      `json:"success_criteria,omitempty"`
	Status          Status        `json:"status"`
	MadeBy          string        `json:"made_by"`
	MadeOn          time.Time     `json:"made_on"`
	Privacy         Privacy       `json:"privacy"`
	AIRiskScore     *int          `json:"ai_risk_score,omitempty"`
	Links           []Link        `json:"links,omitempty"`
	Comments        []Comment     `json:"comments,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so optimistic snapshots cannot alias cache state.
func (d Decision) Clone() Decision {
	out := d
	out.Alternatives = append([]Alternative(nil), d.Alternatives...)
	out.Assumptions = append([]string(nil), d.Assumptions...)
	out.SuccessCriteria = append([]string(nil), d.SuccessCriteria...)
	out.Links = append([]Link(nil), d.Links...)
	out.Comments = append([]Comment(nil), d.Comments...)
	if d.AIRiskScore != nil {
		v := *d.AIRiskScore
		out.AIRiskScore = &v
	}
	return out
}

type Workspace struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	PlanTier PlanTier `json:"plan_tier"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	HasOnboarded bool   `json:"has_onboarded"`
	WorkspaceID  string `json:"workspace_id"`
}

type FeatureFlag struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
	Scope   string `json:"scope,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is the uncommitted decision being authored. One per (user, workspace);
// it lives in durable local storage until submitted or overwritten.
type Draft struct {
	Title           string        `json:"title"`
	Category        Category      `json:"category"`
	Decision        string        `json:"decision"`
	Context         string        `json:"context,omitempty"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	Assumptions     []string      `json:"assumptions,omitempty"`
	SuccessCriteria []string      `json:"success_criteria,omitempty"`
	Privacy         Privacy       `json:"privacy,omitempty"`
	SavedAt         time.Time     `json:"saved_at"`
}

// DecisionInput is the payload for creating a decision. Validated locally
// before any request is issued.
type DecisionInput struct {
	Title           string        `json:"title" validate:"required,min=3"`
	Category        Category      `json:"category" validate:"required,category"`
	Decision        string        `json:"decision" validate:"required"`
	Context         string        `json:"context,omitempty"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	Assumptions     []string      `json:"assumptions,omitempty"`
	SuccessCriteria []string      `json:"success_criteria,omitempty"`
	Privacy         Privacy       `json:"privacy,omitempty"`
}

// DecisionPatch carries partial edits. Nil fields are left untouched.
type DecisionPatch struct {
	Title           *string        `json:"title,omitempty"`
	Category        *Category      `json:"category,omitempty"`
	Decision        *string        `json:"decision,omitempty"`
	Context         *string        `json:"context,omitempty"`
	Alternatives    *[]Alternative `json:"alternatives,omitempty"`
	Assumptions     *[]string      `json:"assumptions,omitempty"`
	SuccessCriteria *[]string      `json:"success_criteria,omitempty"`
	Privacy         *Privacy       `json:"privacy,omitempty"`
}

// Apply overlays the patch onto a decision.
func (p DecisionPatch) Apply(d *Decision) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Decision != nil {
		d.Decision = *p.Decision
	}
	if p.Context != nil {
		d.Context = *p.Context
	}
	if p.Alternatives != nil {
		d.Alternatives = *p.Alternatives
	}
	if p.Assumptions != nil {
		d.Assumptions = *p.Assumptions
	}
	if p.SuccessCriteria != nil {
		d.SuccessCriteria = *p.SuccessCriteria
	}
	if p.Privacy != nil {
		d.Privacy = *p.Privacy
	}
}
