package audit

import (
	"context"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Repository persists and queries activity entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error)
}

// Service records contract activity and serves the timeline.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry. The timestamp defaults to now when unset.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	return s.repo.Insert(ctx, entry)
}

// Timeline returns one page of activity, newest first. It fetches one row
// beyond the page to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	size := filters.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	rows, err := s.repo.Window(ctx, filters, size+1, (page-1)*size)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}
	return Result{
		Rows:   rows,
		Paging: Paging{Page: page, PageSize: size, HasNext: hasNext},
	}, nil
}
