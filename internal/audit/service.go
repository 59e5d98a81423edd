package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Repository reads and writes audit_logs.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	Window(ctx context.Context, q WindowQuery) ([]Entry, error)
}

// Service records audit entries and serves the timeline.
type Service struct {
	repo Repository
}

// NewService builds the audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record persists the entry. It joins the caller's transaction when one is open.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: service not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit: entry requires action/entity/entity_id")
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}
	return s.repo.Insert(ctx, entry)
}

// Timeline returns one page of audit entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, WindowQuery{
		From:     filters.From,
		To:       filters.To,
		Actor:    strings.TrimSpace(filters.Actor),
		Entity:   strings.TrimSpace(filters.Entity),
		EntityID: strings.TrimSpace(filters.EntityID),
		Action:   strings.TrimSpace(filters.Action),
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
