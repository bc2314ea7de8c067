package models

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	StartTime int64 `form:"startTime"` // Unix ms, trips started at or after
	EndTime   int64 `form:"endTime"`   // Unix ms, trips started at or before
	Active    *bool `form:"active"`
	Page      int   `form:"page"`
	PageSize  int   `form:"pageSize"`
}

// FuelFilter represents filter parameters for querying fuel purchases
type FuelFilter struct {
	Year         int    `form:"year"`
	Quarter      int    `form:"quarter"` // 1-4, requires year
	Jurisdiction string `form:"jurisdiction"`
	StartTime    int64  `form:"startTime"` // Unix ms
	EndTime      int64  `form:"endTime"`   // Unix ms
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
}

// TaskFilter represents filter parameters for listing analysis tasks
type TaskFilter struct {
	SkillName string `form:"skill_name"`
	Status    string `form:"status"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}

// Normalize clamps pagination to page >= 1 and 1..1000 rows
func (f *TripFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// Normalize clamps pagination to page >= 1 and 1..1000 rows
func (f *FuelFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// TotalPages returns the number of pages needed for total rows
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}
