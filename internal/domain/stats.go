package domain

// DailyCount is the number of records created on a calendar day (YYYY-MM-DD, UTC).
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DashboardStats aggregates admin dashboard figures.
type DashboardStats struct {
	TotalUsers    int64        `json:"total_users"`
	TotalPosts    int64        `json:"total_posts"`
	UsersOverTime []DailyCount `json:"users_over_time"`
	PostsOverTime []DailyCount `json:"posts_over_time"`
}
