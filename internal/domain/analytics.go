package domain

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers       int64            `json:"total_users"`
	PaidUsers        int64            `json:"paid_users"`
	FreeUsers        int64            `json:"free_users"`
	Active24h        int64            `json:"active_24h"`
	CreditsPurchased int64            `json:"credits_purchased"`
	JobsByStatus     map[string]int64 `json:"jobs_by_status"`
}
