package extraction

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"miim/internal/models"
)

const (
	// DefaultConfidence is used when the model omits or garbles a score
	DefaultConfidence = 0.5
	// CoercionConfidenceCap bounds an entity's score once any of its fields was coerced
	CoercionConfidenceCap = 0.6
)

var ownershipTypes = []string{
	models.OwnershipPrivateDomestic, models.OwnershipPrivateForeign, models.OwnershipStateOwned,
	models.OwnershipJointVenture, models.OwnershipMultinational, models.OwnershipPublicListed,
	models.OwnershipUnknown,
}

var mentionTypes = []string{MentionPrimarySubject, MentionMentioned}

// Parse decodes raw LLM content and validates it into a Result
func Parse(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return Validate(payload), nil
}

// Validate applies defaults and allow-lists to a decoded payload. It never fails:
// unknown enum values are coerced and the entity's confidence is capped.
func Validate(payload map[string]any) *Result {
	if _, ok := payload["entities"]; !ok {
		if _, single := payload["company_name"]; single {
			payload = upgradeSingleEntity(payload)
		}
	}

	result := &Result{
		ArticleSummary:    stringField(payload, "article_summary"),
		OverallConfidence: DefaultConfidence,
	}
	if c, ok := confidenceField(payload, "overall_confidence"); ok {
		result.OverallConfidence = c
	}

	for _, raw := range listField(payload, "entities") {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		result.Entities = append(result.Entities, validateEntity(obj, result.OverallConfidence))
	}

	for _, raw := range listField(payload, "relationships") {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rel := RelationshipCandidate{
			SourceCompany:    stringField(obj, "source_company"),
			TargetCompany:    stringField(obj, "target_company"),
			RelationshipType: strings.ToLower(stringField(obj, "relationship_type")),
			Description:      stringField(obj, "description"),
		}
		if !contains(models.RelationshipTypes, rel.RelationshipType) {
			if rel.RelationshipType != "" {
				log.Printf("Invalid relationship_type %q, defaulting to partner", rel.RelationshipType)
			}
			rel.RelationshipType = models.RelationshipPartner
		}
		result.Relationships = append(result.Relationships, rel)
	}

	return result
}

func validateEntity(obj map[string]any, overall float64) Entity {
	coerced := false

	e := Entity{
		CompanyName:        strings.Join(strings.Fields(stringField(obj, "company_name")), " "),
		Description:        stringField(obj, "description"),
		Activities:         stringListField(obj, "activities"),
		Sector:             stringField(obj, "sector"),
		SubSector:          stringField(obj, "sub_sector"),
		ValueChainPosition: stringField(obj, "value_chain_position"),
		City:               stringField(obj, "city"),
		WebsiteURL:         stringField(obj, "website_url"),
		ParentCompany:      stringField(obj, "parent_company"),
	}
	if e.City == "" {
		e.City = stringField(obj, "headquarters_city")
	}

	var ok bool
	if e.EventType, ok = enumField(obj, "event_type", models.EventTypes, models.EventOther); !ok {
		coerced = true
	}
	if e.OwnershipType, ok = enumField(obj, "ownership_type", ownershipTypes, models.OwnershipUnknown); !ok {
		coerced = true
	}
	if e.MentionType, ok = enumField(obj, "mention_type", mentionTypes, MentionMentioned); !ok {
		coerced = true
	}

	if e.InvestmentAmountMAD, ok = amountField(obj, "investment_amount", "investment_amount_mad"); !ok {
		coerced = true
	}
	if e.RevenueMAD, ok = amountField(obj, "revenue", "revenue_mad"); !ok {
		coerced = true
	}
	if e.CapitalMAD, ok = amountField(obj, "capital", "capital_mad"); !ok {
		coerced = true
	}
	employees, ok := amountField(obj, "employee_count")
	if !ok {
		coerced = true
	}
	if employees != nil {
		n := int64(math.Round(*employees))
		e.EmployeeCount = &n
	}

	for _, raw := range listField(obj, "management_mentions") {
		switch m := raw.(type) {
		case string:
			if name := strings.TrimSpace(m); name != "" {
				e.ManagementMentions = append(e.ManagementMentions, ManagementMention{Name: name})
			}
		case map[string]any:
			name := stringField(m, "name")
			if name == "" {
				name = stringField(m, "person_name")
			}
			if name != "" {
				e.ManagementMentions = append(e.ManagementMentions, ManagementMention{Name: name, Role: stringField(m, "role")})
			}
		}
	}

	if c, present := confidenceField(obj, "confidence_score"); present {
		e.ConfidenceScore = &c
	}
	if coerced {
		capped := math.Min(e.Confidence(overall), CoercionConfidenceCap)
		e.ConfidenceScore = &capped
	}
	return e
}

// upgradeSingleEntity maps the flat one-company payload onto the entity list shape
func upgradeSingleEntity(payload map[string]any) map[string]any {
	entity := make(map[string]any, len(payload))
	for k, v := range payload {
		entity[k] = v
	}
	entity["mention_type"] = MentionPrimarySubject

	name := stringField(payload, "company_name")
	entities := []any{entity}
	var relationships []any
	for _, partner := range stringListField(payload, "partner_companies") {
		entities = append(entities, map[string]any{"company_name": partner, "mention_type": MentionMentioned})
		relationships = append(relationships, map[string]any{
			"source_company":    name,
			"target_company":    partner,
			"relationship_type": models.RelationshipPartner,
		})
	}

	upgraded := map[string]any{
		"entities":      entities,
		"relationships": relationships,
	}
	if summary, ok := payload["source_summary"]; ok {
		upgraded["article_summary"] = summary
	}
	if c, ok := payload["confidence_score"]; ok {
		upgraded["overall_confidence"] = c
	}
	return upgraded
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func listField(obj map[string]any, key string) []any {
	list, _ := obj[key].([]any)
	return list
}

func stringListField(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// enumField returns the allowed value, the fallback when absent, and ok=false when
// a present value had to be coerced.
func enumField(obj map[string]any, key string, allowed []string, fallback string) (string, bool) {
	raw := strings.ToLower(stringField(obj, key))
	if raw == "" {
		return fallback, true
	}
	raw = strings.ReplaceAll(raw, " ", "_")
	if contains(allowed, raw) {
		return raw, true
	}
	log.Printf("Invalid %s %q, defaulting to %s", key, raw, fallback)
	return fallback, false
}

// amountField reads the first present key as a non-negative number.
// ok=false means a value was present but unusable.
func amountField(obj map[string]any, keys ...string) (*float64, bool) {
	for _, key := range keys {
		raw, present := obj[key]
		if !present || raw == nil {
			continue
		}
		f, ok := toFloat(raw)
		if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		f = math.Round(f*100) / 100
		return &f, true
	}
	return nil, true
}

func confidenceField(obj map[string]any, key string) (float64, bool) {
	raw, present := obj[key]
	if !present || raw == nil {
		return 0, false
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) {
		return DefaultConfidence, true
	}
	return math.Max(0, math.Min(1, f)), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), " ", "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
