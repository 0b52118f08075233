// Package extraction is the boundary to the LLM that turns article text into
// companies, events and relationships.
package extraction

import (
	"context"
	"strings"
)

// Mention types
const (
	MentionPrimarySubject = "primary_subject"
	MentionMentioned      = "mentioned"
)

// Extractor turns article text into a validated Result
type Extractor interface {
	Extract(ctx context.Context, text string) (*Result, error)
}

// ManagementMention is a named person attached to a company
type ManagementMention struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Entity is one company profile inside an extraction result.
// Absent text is "", absent numbers are nil.
type Entity struct {
	CompanyName         string              `json:"company_name"`
	Description         string              `json:"description,omitempty"`
	Activities          []string            `json:"activities,omitempty"`
	Sector              string              `json:"sector,omitempty"`
	SubSector           string              `json:"sub_sector,omitempty"`
	ValueChainPosition  string              `json:"value_chain_position,omitempty"`
	EventType           string              `json:"event_type"`
	City                string              `json:"city,omitempty"`
	InvestmentAmountMAD *float64            `json:"investment_amount,omitempty"`
	EmployeeCount       *int64              `json:"employee_count,omitempty"`
	RevenueMAD          *float64            `json:"revenue,omitempty"`
	CapitalMAD          *float64            `json:"capital,omitempty"`
	WebsiteURL          string              `json:"website_url,omitempty"`
	ParentCompany       string              `json:"parent_company,omitempty"`
	OwnershipType       string              `json:"ownership_type"`
	ManagementMentions  []ManagementMention `json:"management_mentions,omitempty"`
	MentionType         string              `json:"mention_type"`
	ConfidenceScore     *float64            `json:"confidence_score,omitempty"`
}

// HasName reports whether the entity names a company
func (e *Entity) HasName() bool {
	return strings.TrimSpace(e.CompanyName) != ""
}

// IsPrimary reports whether the article is principally about this entity
func (e *Entity) IsPrimary() bool {
	return e.MentionType == MentionPrimarySubject
}

// Confidence returns the entity's own score, or fallback when it has none
func (e *Entity) Confidence(fallback float64) float64 {
	if e.ConfidenceScore != nil {
		return *e.ConfidenceScore
	}
	return fallback
}

// RelationshipCandidate is an edge proposed by the LLM between two named companies
type RelationshipCandidate struct {
	SourceCompany    string `json:"source_company"`
	TargetCompany    string `json:"target_company"`
	RelationshipType string `json:"relationship_type"`
	Description      string `json:"description,omitempty"`
}

// Result is the validated output of one extraction call
type Result struct {
	Entities          []Entity                `json:"entities"`
	Relationships     []RelationshipCandidate `json:"relationships"`
	ArticleSummary    string                  `json:"article_summary"`
	OverallConfidence float64                 `json:"overall_confidence"`
	InputTokens       int                     `json:"input_tokens"`
	OutputTokens      int                     `json:"output_tokens"`
	Model             string                  `json:"model,omitempty"`
	PromptVersion     string                  `json:"prompt_version,omitempty"`
}

// NamedEntities returns the entities that carry a company name
func (r *Result) NamedEntities() []Entity {
	named := make([]Entity, 0, len(r.Entities))
	for _, e := range r.Entities {
		if e.HasName() {
			named = append(named, e)
		}
	}
	return named
}
