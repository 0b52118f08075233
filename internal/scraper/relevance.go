package scraper

import "strings"

// MinKeywordMatches is how many distinct industry keywords an article needs to be kept
const MinKeywordMatches = 2

// DefaultKeywords flag articles about Moroccan industry, in French and English
var DefaultKeywords = []string{
	"industrie", "industriel", "fabrication", "manufacture", "usine",
	"production", "secteur", "secteur économique", "export", "exportation",
	"pme", "tpe", "entreprise", "société", "groupe", "holding",
	"maroc", "marocain", "casablanca", "fès", "tanger", "rabat", "marrakech",
	"zone industrielle", "zone franche", "parc industriel",
	"investissement", "partenariat", "alliance", "joint venture",
	"acquisition", "fusion", "croissance", "expansion",
	"formation", "compétence", "ressource humaine",
	"innovation", "recherche", "développement", "r&d", "technologie",
	"supplier", "fournisseur", "client", "customer", "distributeur",
	"automobile", "aéronautique", "défense", "textile", "agroalimentaire",
	"électronique", "chimie", "pharmaceutique", "énergie", "mines",
	"logiciel", "digital", "transformation", "industrie 4.0",
	"ompic", "amdie", "invest in morocco",
}

// RelevanceFilter keeps articles that mention enough industry keywords
type RelevanceFilter struct {
	keywords   []string
	minMatches int
}

// NewRelevanceFilter creates a filter; an empty keyword list uses DefaultKeywords
func NewRelevanceFilter(keywords []string, minMatches int) *RelevanceFilter {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if minMatches <= 0 {
		minMatches = MinKeywordMatches
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &RelevanceFilter{keywords: lowered, minMatches: minMatches}
}

// Matches counts the distinct keywords found in text
func (f *RelevanceFilter) Matches(text string) int {
	text = strings.ToLower(text)
	count := 0
	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			count++
		}
	}
	return count
}

// IsRelevant reports whether text reaches the keyword threshold
func (f *RelevanceFilter) IsRelevant(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return f.Matches(text) >= f.minMatches
}
