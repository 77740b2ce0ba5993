package model

import "math"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// maxOffset keeps (Number-1)*PerPage far from overflowing int and within
// what Postgres accepts for OFFSET.
const maxOffset = math.MaxInt32

type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps user-supplied paging parameters.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if maxPage := maxOffset/perPage + 1; number > maxPage {
		number = maxPage
	}
	return Page{Number: number, PerPage: perPage}
}

func (p Page) Limit() int  { return p.PerPage }
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func (p Page) Paginate(total int) Pagination {
	pages := (total + p.PerPage - 1) / p.PerPage
	return Pagination{
		Page:    p.Number,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: p.Number < pages,
		HasPrev: p.Number > 1,
	}
}
