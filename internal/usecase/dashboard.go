package usecase

import (
	"github.com/shopspring/decimal"

	"entrepreneursim/internal/domain"
)

// ClassStats are the derived figures on the teacher overview
type ClassStats struct {
	AvgRevenuePerBusiness string
	BusinessesPerStudent  string
}

// DeriveClassStats computes average revenue per business (2 dp, "0.00" when
// there are none) and businesses per student (1 dp, "0" when there are none)
func DeriveClassStats(stats domain.DashboardStats) ClassStats {
	out := ClassStats{AvgRevenuePerBusiness: "0.00", BusinessesPerStudent: "0"}

	if stats.TotalBusinesses > 0 {
		out.AvgRevenuePerBusiness = stats.TotalRevenue.
			Div(decimal.NewFromInt(int64(stats.TotalBusinesses))).
			StringFixed(2)
	}
	if stats.TotalStudents > 0 {
		out.BusinessesPerStudent = decimal.NewFromInt(int64(stats.TotalBusinesses)).
			Div(decimal.NewFromInt(int64(stats.TotalStudents))).
			StringFixed(1)
	}
	return out
}

// AdminTabs are the sections of the teacher dashboard
var AdminTabs = []string{"overview", "businesses", "students", "transactions"}

// AdminTab normalizes a requested tab, defaulting to the overview
func AdminTab(tab string) string {
	for _, t := range AdminTabs {
		if t == tab {
			return t
		}
	}
	return AdminTabs[0]
}
