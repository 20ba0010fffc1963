package model

// ListQuery carries the search, filter, sort and paging parameters of the
// roster and results listings. Empty or "all" filters match everything.
type ListQuery struct {
	Search    string `form:"search" binding:"max=100"`
	ClassName string `form:"class"`
	Section   string `form:"section"`
	Status    string `form:"status" binding:"omitempty,oneof=all Pass Fail"`
	SortBy    string `form:"sort_by"`
	SortDir   string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PerPage   int    `form:"per_page" binding:"omitempty,min=1,max=500"`
}
