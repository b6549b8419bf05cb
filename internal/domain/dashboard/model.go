package dashboard

// Stats is the role-specific summary shown on a user's dashboard.
type Stats interface {
	role() string
}

type PatientStats struct {
	UpcomingAppointments int `json:"upcoming_appointments"`
	ActiveOrders         int `json:"active_orders"`
	TotalReports         int `json:"total_reports"`
	HomeVisits           int `json:"home_visits"`
}

type DoctorStats struct {
	TodayAppointments int     `json:"today_appointments"`
	TotalPatients     int     `json:"total_patients"`
	MonthlyEarnings   float64 `json:"monthly_earnings"`
	Rating            float64 `json:"rating"`
}

type AdminStats struct {
	TotalPatients     int     `json:"total_patients"`
	TotalDoctors      int     `json:"total_doctors"`
	TodayAppointments int     `json:"today_appointments"`
	MonthlyRevenue    float64 `json:"monthly_revenue"`
}

func (*PatientStats) role() string { return "patient" }
func (*DoctorStats) role() string { return "doctor" }
func (*AdminStats) role() string { return "admin" }
