package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullPayload(t *testing.T) {
	content := `{
		"entities": [
			{"company_name": "  Renault   Group ", "event_type": "investment", "city": "Tanger",
			 "investment_amount": 4950000000, "employee_count": "2000", "ownership_type": "multinational",
			 "mention_type": "primary_subject", "confidence_score": 0.95,
			 "management_mentions": [{"name": "Mohamed Bachiri", "role": "DG"}, "Luca de Meo"]},
			{"company_name": "Yazaki Morocco", "mention_type": "mentioned"}
		],
		"relationships": [
			{"source_company": "Renault Group", "target_company": "Yazaki Morocco", "relationship_type": "Supplier"}
		],
		"article_summary": "Renault invests in Tanger.",
		"overall_confidence": 0.92
	}`

	result, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, 0.92, result.OverallConfidence)
	assert.Equal(t, "Renault invests in Tanger.", result.ArticleSummary)
	require.Len(t, result.Entities, 2)

	renault := result.Entities[0]
	assert.Equal(t, "Renault Group", renault.CompanyName)
	assert.True(t, renault.IsPrimary())
	assert.Equal(t, "investment", renault.EventType)
	require.NotNil(t, renault.EmployeeCount)
	assert.Equal(t, int64(2000), *renault.EmployeeCount)
	require.NotNil(t, renault.InvestmentAmountMAD)
	assert.Equal(t, 4950000000.0, *renault.InvestmentAmountMAD)
	assert.Equal(t, 0.95, renault.Confidence(0))
	assert.Len(t, renault.ManagementMentions, 2)

	yazaki := result.Entities[1]
	assert.Equal(t, "other", yazaki.EventType)
	assert.Equal(t, "unknown", yazaki.OwnershipType)
	assert.Nil(t, yazaki.ConfidenceScore)
	assert.Equal(t, 0.92, yazaki.Confidence(result.OverallConfidence))

	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "supplier", result.Relationships[0].RelationshipType)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("not json at all")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = Parse("   ")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestValidateCoercionCapsEntityConfidence(t *testing.T) {
	tests := []struct {
		name     string
		entity   map[string]any
		expected float64
	}{
		{
			name:     "unknown event type",
			entity:   map[string]any{"company_name": "OCP", "event_type": "merger", "confidence_score": 0.9},
			expected: 0.6,
		},
		{
			name:     "unknown ownership type",
			entity:   map[string]any{"company_name": "OCP", "ownership_type": "cooperative", "confidence_score": 0.95},
			expected: 0.6,
		},
		{
			name:     "unparseable amount",
			entity:   map[string]any{"company_name": "OCP", "investment_amount": "beaucoup", "confidence_score": 0.8},
			expected: 0.6,
		},
		{
			name:     "penalty never raises a low score",
			entity:   map[string]any{"company_name": "OCP", "event_type": "merger", "confidence_score": 0.3},
			expected: 0.3,
		},
		{
			name:     "no coercion keeps score",
			entity:   map[string]any{"company_name": "OCP", "event_type": "expansion", "confidence_score": 0.9},
			expected: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(map[string]any{
				"entities":           []any{tt.entity},
				"overall_confidence": 0.9,
			})
			require.Len(t, result.Entities, 1)
			assert.InDelta(t, tt.expected, result.Entities[0].Confidence(result.OverallConfidence), 1e-9)
			// overall score is left alone
			assert.Equal(t, 0.9, result.OverallConfidence)
		})
	}
}

func TestValidateDefaultsAndClamping(t *testing.T) {
	result := Validate(map[string]any{
		"entities": []any{
			map[string]any{"company_name": "Lear", "confidence_score": 1.7, "employee_count": -5, "headquarters_city": "Kenitra"},
			"garbage",
		},
		"relationships": []any{
			map[string]any{"source_company": "Lear", "target_company": "PSA", "relationship_type": "friend"},
		},
		"overall_confidence": "n/a",
	})

	assert.Equal(t, DefaultConfidence, result.OverallConfidence)
	require.Len(t, result.Entities, 1)
	lear := result.Entities[0]
	assert.Equal(t, "Kenitra", lear.City)
	assert.Nil(t, lear.EmployeeCount)
	// negative count is dropped and counts as a coercion
	assert.Equal(t, CoercionConfidenceCap, lear.Confidence(0))
	assert.Equal(t, "partner", result.Relationships[0].RelationshipType)
}

func TestValidateMissingOverallConfidence(t *testing.T) {
	result := Validate(map[string]any{"entities": []any{}})
	assert.Equal(t, DefaultConfidence, result.OverallConfidence)
	assert.Empty(t, result.NamedEntities())
}

func TestValidateSingleEntityPayload(t *testing.T) {
	result := Validate(map[string]any{
		"company_name":      "Renault Group",
		"event_type":        "new_factory",
		"partner_companies": []any{"Yazaki Morocco", "SNOP"},
		"source_summary":    "Renault expands in Tanger.",
		"confidence_score":  0.9,
	})

	require.Len(t, result.Entities, 3)
	assert.True(t, result.Entities[0].IsPrimary())
	assert.Equal(t, "new_factory", result.Entities[0].EventType)
	assert.Equal(t, 0.9, result.OverallConfidence)
	assert.Equal(t, "Renault expands in Tanger.", result.ArticleSummary)
	require.Len(t, result.Relationships, 2)
	assert.Equal(t, "SNOP", result.Relationships[1].TargetCompany)
}

func TestNamedEntitiesSkipsBlankNames(t *testing.T) {
	result := &Result{Entities: []Entity{{CompanyName: ""}, {CompanyName: "  "}, {CompanyName: "Stellantis"}}}
	named := result.NamedEntities()
	require.Len(t, named, 1)
	assert.Equal(t, "Stellantis", named[0].CompanyName)
}

func TestPricingCost(t *testing.T) {
	p := DefaultPricing()
	assert.InDelta(t, 2.50, p.Cost(1_000_000, 0), 1e-9)
	assert.InDelta(t, 0.0125+0.005, p.Cost(5000, 500), 1e-9)
}
