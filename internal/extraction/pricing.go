package extraction

// Pricing is the USD price per million tokens
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// DefaultPricing is GPT-4o list price
func DefaultPricing() Pricing {
	return Pricing{InputPerMillion: 2.50, OutputPerMillion: 10.00}
}

// Cost returns the USD cost of one call
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
