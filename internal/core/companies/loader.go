package companies

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vietddude/curator/internal/core/domain"
)

// Load reads the company universe from a JSON file. The file is an array
// of objects carrying symbol, company_name, gics_sector and
// gics_sub_industry.
func Load(path string) ([]domain.Company, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read companies file: %w", err)
	}

	var companies []domain.Company
	if err := json.Unmarshal(data, &companies); err != nil {
		return nil, fmt.Errorf("failed to parse companies file %s: %w", path, err)
	}

	out := companies[:0]
	for _, c := range companies {
		c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
		if c.Symbol == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("companies file %s contains no usable entries", path)
	}
	return out, nil
}

// FilterSector keeps only companies in the given GICS sector. An empty
// sector returns the input unchanged.
func FilterSector(companies []domain.Company, sector string) []domain.Company {
	if sector == "" {
		return companies
	}
	var out []domain.Company
	for _, c := range companies {
		if strings.EqualFold(c.Sector, sector) {
			out = append(out, c)
		}
	}
	return out
}

// Limit truncates the list to at most n companies. Zero or negative n
// means no limit.
func Limit(companies []domain.Company, n int) []domain.Company {
	if n <= 0 || n >= len(companies) {
		return companies
	}
	return companies[:n]
}
