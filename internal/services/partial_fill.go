package services

import "miim/internal/models"

// fillEmptyFields copies into dst every field that is empty on dst and set on src.
// Populated fields on dst are never touched. It returns the changed column names.
func fillEmptyFields(dst *models.Company, src *models.Company) []string {
	var cols []string

	fillString := func(col string, d *string, s string) {
		if *d == "" && s != "" {
			*d = s
			cols = append(cols, col)
		}
	}
	fillFloat := func(col string, d **float64, s *float64) {
		if *d == nil && s != nil {
			v := *s
			*d = &v
			cols = append(cols, col)
		}
	}

	fillString("sector", &dst.Sector, src.Sector)
	fillString("sub_sector", &dst.SubSector, src.SubSector)
	fillString("value_chain_position", &dst.ValueChainPosition, src.ValueChainPosition)
	fillString("headquarters_city", &dst.HeadquartersCity, src.HeadquartersCity)
	fillString("ownership_type", &dst.OwnershipType, src.OwnershipType)
	fillString("description", &dst.Description, src.Description)
	fillString("website_url", &dst.WebsiteURL, src.WebsiteURL)
	fillString("parent_company", &dst.ParentCompany, src.ParentCompany)

	if len(dst.Activities) == 0 && len(src.Activities) > 0 {
		dst.Activities = append([]string(nil), src.Activities...)
		cols = append(cols, "activities")
	}
	if dst.EmployeeCount == nil && src.EmployeeCount != nil {
		v := *src.EmployeeCount
		dst.EmployeeCount = &v
		cols = append(cols, "employee_count")
	}

	fillFloat("revenue_mad", &dst.RevenueMAD, src.RevenueMAD)
	fillFloat("investment_amount_mad", &dst.InvestmentAmountMAD, src.InvestmentAmountMAD)
	fillFloat("capital_mad", &dst.CapitalMAD, src.CapitalMAD)

	return cols
}
