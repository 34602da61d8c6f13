package domain

import "github.com/shopspring/decimal"

// AdminDashboard is the teacher's aggregate view of the class
type AdminDashboard struct {
	Stats              DashboardStats   `json:"stats"`
	TopBusinesses      []Business       `json:"topBusinesses"`
	TopStudents        []StudentSummary `json:"topStudents"`
	RecentTransactions []Transaction    `json:"recentTransactions"`
}

// DashboardStats are class-wide totals
type DashboardStats struct {
	TotalStudents     int             `json:"totalStudents"`
	TotalBusinesses   int             `json:"totalBusinesses"`
	TotalTransactions int             `json:"totalTransactions"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

// StudentSummary ranks one student on the teacher dashboard
type StudentSummary struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	BusinessCount int             `json:"business_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	Balance       decimal.Decimal `json:"balance"`
}
