package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// MaxMessageLength bounds chat messages and contact replies, in characters.
const MaxMessageLength = 5000

// scanPageSize is the store page size used when a listing must be filtered in memory.
const scanPageSize = 200

func normalizeBody(field, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", apperrors.NewValidationError(field+" is too long", map[string]any{
			"field": field,
			"max":   MaxMessageLength,
		})
	}
	return body, nil
}

// scanAll pages through a store listing until a short page is returned.
func scanAll[T any](fetch func(limit, offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += scanPageSize {
		page, err := fetch(scanPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < scanPageSize {
			return all, nil
		}
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeUser, ID: userID}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.SubjectTypeSupport, ID: staffID}
}

func notFoundOr(err error, resource, id string) error {
	if apperrors.IsMissing(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}
