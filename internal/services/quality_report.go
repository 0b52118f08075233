package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"miim/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// reportFields are the company columns measured for completeness
var reportFields = []string{
	"sector",
	"headquarters_city",
	"ownership_type",
	"description",
	"employee_count",
	"website_url",
}

// FieldCompleteness is the share of companies with a populated column
type FieldCompleteness struct {
	Field   string  `json:"field"`
	Filled  int64   `json:"filled"`
	Percent float64 `json:"percent"`
}

// SectorCount is one bar of the sector histogram
type SectorCount struct {
	Sector string `json:"sector"`
	Count  int64  `json:"count"`
}

// OrphanedParent is a company whose parent_company names no stored company
type OrphanedParent struct {
	Company         string `json:"company"`
	ParentReference string `json:"parent_reference"`
}

// QualityReport is the read-only snapshot produced at the end of a sweep
type QualityReport struct {
	GeneratedAt        time.Time           `json:"generated_at"`
	TotalCompanies     int64               `json:"total_companies"`
	TotalEvents        int64               `json:"total_events"`
	TotalRelationships int64               `json:"total_relationships"`
	PendingReviews     int64               `json:"pending_reviews"`
	DuplicatesFound    int                 `json:"duplicates_found"`
	Completeness       []FieldCompleteness `json:"completeness"`
	Sectors            []SectorCount       `json:"sectors"`
	OrphanedParents    []OrphanedParent    `json:"orphaned_parents"`
}

// GenerateReport measures completeness, sector spread and dangling parent references
func (qs *QualityService) GenerateReport(ctx context.Context) (*QualityReport, error) {
	db := qs.db.WithContext(ctx)
	report := &QualityReport{GeneratedAt: time.Now().UTC()}

	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.Company{}, &report.TotalCompanies},
		{&models.Event{}, &report.TotalEvents},
		{&models.Relationship{}, &report.TotalRelationships},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	if err := db.Model(&models.ReviewQueueItem{}).Where("status = ?", models.ReviewStatusPending).
		Count(&report.PendingReviews).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending reviews: %w", err)
	}

	completeness, err := qs.completeness(ctx, report.TotalCompanies)
	if err != nil {
		return nil, err
	}
	report.Completeness = completeness

	if report.Sectors, err = qs.sectorHistogram(ctx); err != nil {
		return nil, err
	}
	if report.OrphanedParents, err = qs.orphanedParents(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func (qs *QualityService) completeness(ctx context.Context, total int64) ([]FieldCompleteness, error) {
	columns := make([]string, 0, len(reportFields))
	for _, field := range reportFields {
		if field == "employee_count" {
			columns = append(columns, fmt.Sprintf("COUNT(%s) AS %s", field, field))
			continue
		}
		columns = append(columns, fmt.Sprintf("COUNT(NULLIF(%s, '')) AS %s", field, field))
	}

	query, args, err := sq.Select(columns...).From(models.Company{}.TableName()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building completeness query: %w", err)
	}

	row := map[string]interface{}{}
	if err := qs.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to measure completeness: %w", err)
	}

	out := make([]FieldCompleteness, 0, len(reportFields))
	for _, field := range reportFields {
		filled := toInt64(row[field])
		fc := FieldCompleteness{Field: field, Filled: filled}
		if total > 0 {
			fc.Percent = float64(filled) * 100 / float64(total)
		}
		out = append(out, fc)
	}
	return out, nil
}

func (qs *QualityService) sectorHistogram(ctx context.Context) ([]SectorCount, error) {
	bucket := "COALESCE(NULLIF(sector, ''), 'Unknown')"
	query, args, err := sq.Select(bucket+" AS sector", "COUNT(*) AS count").
		From(models.Company{}.TableName()).
		GroupBy(bucket).
		OrderBy("count DESC", "sector ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building sector query: %w", err)
	}

	var sectors []SectorCount
	if err := qs.db.WithContext(ctx).Raw(query, args...).Scan(&sectors).Error; err != nil {
		return nil, fmt.Errorf("failed to build sector histogram: %w", err)
	}
	return sectors, nil
}

// orphanedParents compares names in Go so the case folding is Unicode-aware on every driver
func (qs *QualityService) orphanedParents(ctx context.Context) ([]OrphanedParent, error) {
	query, args, err := sq.Select("company_name", "parent_company").
		From(models.Company{}.TableName()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building parent query: %w", err)
	}

	var rows []struct {
		CompanyName   string
		ParentCompany *string
	}
	if err := qs.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load parent references: %w", err)
	}

	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[strings.ToLower(strings.TrimSpace(r.CompanyName))] = true
	}

	var orphans []OrphanedParent
	for _, r := range rows {
		if r.ParentCompany == nil {
			continue
		}
		parent := strings.TrimSpace(*r.ParentCompany)
		if parent == "" || known[strings.ToLower(parent)] {
			continue
		}
		orphans = append(orphans, OrphanedParent{Company: r.CompanyName, ParentReference: parent})
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Company < orphans[j].Company })
	return orphans, nil
}

// markdownEscaper backslash-escapes stored text so names cannot inject markup or break table rows
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `|`, `\|`, `#`, `\#`, "\n", " ", "\r", " ",
)

// Markdown renders the report for the CLI and the HTML report page
func (r *QualityReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Data Quality Report\n\n")
	fmt.Fprintf(&b, "_Generated %s_\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Totals\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Companies | %d |\n", r.TotalCompanies)
	fmt.Fprintf(&b, "| Events | %d |\n", r.TotalEvents)
	fmt.Fprintf(&b, "| Relationships | %d |\n", r.TotalRelationships)
	fmt.Fprintf(&b, "| Pending reviews | %d |\n", r.PendingReviews)
	fmt.Fprintf(&b, "| Duplicate candidates | %d |\n\n", r.DuplicatesFound)

	fmt.Fprintf(&b, "## Field completeness\n\n")
	fmt.Fprintf(&b, "| Field | Filled | %% |\n|---|---|---|\n")
	for _, fc := range r.Completeness {
		fmt.Fprintf(&b, "| %s | %d | %.1f |\n", fc.Field, fc.Filled, fc.Percent)
	}

	fmt.Fprintf(&b, "\n## Sectors\n\n")
	fmt.Fprintf(&b, "| Sector | Companies |\n|---|---|\n")
	for _, s := range r.Sectors {
		fmt.Fprintf(&b, "| %s | %d |\n", markdownEscaper.Replace(s.Sector), s.Count)
	}

	fmt.Fprintf(&b, "\n## Orphaned parent references\n\n")
	if len(r.OrphanedParents) == 0 {
		fmt.Fprintf(&b, "None.\n")
	}
	for _, o := range r.OrphanedParents {
		fmt.Fprintf(&b, "- %s -> %s\n", markdownEscaper.Replace(o.Company), markdownEscaper.Replace(o.ParentReference))
	}
	return b.String()
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		var out int64
		fmt.Sscan(string(n), &out)
		return out
	case string:
		var out int64
		fmt.Sscan(n, &out)
		return out
	}
	return 0
}
