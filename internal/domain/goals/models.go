package goals

import "time"

type Goal struct {
	ID            string     `json:"id"`
	StaffID       string     `json:"staffId"`
	StaffName     string     `json:"staffName,omitempty"`
	Year          int        `json:"year"`
	Quarter       int        `json:"quarter"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Target        string     `json:"target"`
	Progress      float64    `json:"progress"`
	Status        string     `json:"status"`
	SelfComment   string     `json:"selfComment"`
	ReviewComment string     `json:"reviewComment"`
	ReviewedBy    string     `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Input struct {
	Year        int      `json:"year"`
	Quarter     int      `json:"quarter"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Target      string   `json:"target"`
	Progress    *float64 `json:"progress"`
	SelfComment string   `json:"selfComment"`
}

type Filter struct {
	StaffID string
	Year    int
	Quarter int
	Status  string
}

type Summary struct {
	Year            int            `json:"year"`
	Quarter         int            `json:"quarter"`
	Total           int            `json:"total"`
	Counts          map[string]int `json:"counts"`
	AverageProgress float64        `json:"averageProgress"`
}
