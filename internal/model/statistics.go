package model

// StatisticsResponse aggregates booking counts and delivered totals for the admin dashboard
type StatisticsResponse struct {
	TotalBookings        int64  `json:"total_bookings"`
	PendingBookings      int64  `json:"pending_bookings"`
	CompletedBookings    int64  `json:"completed_bookings"`
	TotalCustomers       int64  `json:"total_customers"`
	TotalRevenue         string `json:"total_revenue"`
	TotalLitersDelivered string `json:"total_liters_delivered"`
}
