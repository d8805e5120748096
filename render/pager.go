package render

import "github.com/gnemet/crudgrid"

// pageWindow is how many consecutive page numbers the pager shows.
const pageWindow = 5

// minSkipPages is the page count from which first and last page links appear.
const minSkipPages = 8

// PageLink is one entry of the pager. Ellipsis entries carry no number.
type PageLink struct {
	Number   int
	Current  bool
	Ellipsis bool
}

// Pager is the derived pagination state for a grid.
type Pager struct {
	Visible      bool
	Page         int
	TotalPages   int
	Prev, Next   int
	PrevDisabled bool
	NextDisabled bool
	Links        []PageLink
}

// TotalPages is the number of pages needed for itemCount rows.
func TotalPages(itemCount int) int {
	if itemCount <= 0 {
		return 0
	}
	return (itemCount + crudgrid.PageSize - 1) / crudgrid.PageSize
}

// Paginate computes the pager for itemCount rows with page selected. It is
// hidden when everything fits on one page. Up to five page numbers are shown
// around the current page. Once there are enough pages to skip some, the
// first page is added with an ellipsis when the current page is past the
// fourth, and the last page likewise when it is more than three from the end.
func Paginate(itemCount, page int) Pager {
	total := TotalPages(itemCount)
	if page < 1 {
		page = 1
	}
	if total > 0 && page > total {
		page = total
	}

	p := Pager{
		Visible:    itemCount > crudgrid.PageSize,
		Page:       page,
		TotalPages: total,
		Prev:       page - 1,
		Next:       page + 1,
	}
	p.PrevDisabled = page <= 1
	p.NextDisabled = page >= total
	if !p.Visible {
		return p
	}

	start := page - pageWindow/2
	end := page + pageWindow/2
	if start < 1 {
		end += 1 - start
		start = 1
	}
	if end > total {
		start -= end - total
		end = total
	}
	if start < 1 {
		start = 1
	}

	skip := total >= minSkipPages
	if skip && page > pageWindow-1 {
		p.Links = append(p.Links, PageLink{Number: 1}, PageLink{Ellipsis: true})
	}
	for n := start; n <= end; n++ {
		p.Links = append(p.Links, PageLink{Number: n, Current: n == page})
	}
	if skip && page < total-(pageWindow-2) {
		p.Links = append(p.Links, PageLink{Ellipsis: true}, PageLink{Number: total})
	}
	return p
}
