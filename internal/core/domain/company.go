package domain

// Company is one unit of batch work: a symbol plus the light metadata
// carried alongside it from the S&P 500 company list. Immutable once loaded.
type Company struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"gics_sector"`
	SubSector   string `json:"gics_sub_industry"`
}

// Key returns the unique identifier of the work item.
func (c Company) Key() string {
	return c.Symbol
}
