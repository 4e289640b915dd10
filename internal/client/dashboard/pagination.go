package dashboard

// TotalPages is ceil(n/size). An empty list has zero pages.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Window returns the half-open bounds of page (1-indexed) over n items,
// clamped to [0, n].
func Window(n, size, page int) (start, end int) {
	if size <= 0 || page < 1 {
		return 0, 0
	}
	start = min((page-1)*size, n)
	end = min(page*size, n)
	return start, end
}

// Page returns the items shown on page.
func Page[T any](items []T, size, page int) []T {
	start, end := Window(len(items), size, page)
	return items[start:end]
}

// ClampPage keeps page within [1, max(1, total)].
func ClampPage(page, total int) int {
	if total < 1 {
		total = 1
	}
	return max(1, min(page, total))
}
