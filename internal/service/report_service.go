package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/routing"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// RoutingReportRow aggregates routed workload for one role tag.
type RoutingReportRow struct {
	Role            domain.RoleTag `json:"role"`
	ContactsTotal   int            `json:"contacts_total"`
	ContactsReplied int            `json:"contacts_replied"`
	ChatsOpen       int            `json:"chats_open"`
	ChatsResolved   int            `json:"chats_resolved"`
	ChatsClosed     int            `json:"chats_closed"`
}

// ReportService computes routing reports by reclassifying stored labels.
type ReportService struct {
	contacts repository.ContactRepository
	chats    repository.ChatRepository
}

// ReportDependencies bundles repositories for reports.
type ReportDependencies struct {
	ContactRepo repository.ContactRepository
	ChatRepo    repository.ChatRepository
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{contacts: deps.ContactRepo, chats: deps.ChatRepo}
}

// RoutingReport returns one row per role tag, in display order.
func (s *ReportService) RoutingReport(ctx context.Context) ([]RoutingReportRow, error) {
	rows := make([]RoutingReportRow, len(domain.AllRoleTags))
	index := make(map[domain.RoleTag]int, len(domain.AllRoleTags))
	for i, tag := range domain.AllRoleTags {
		rows[i].Role = tag
		index[tag] = i
	}

	contacts, err := scanAll(func(limit, offset int) ([]domain.ContactMessage, error) {
		return s.contacts.List(ctx, repository.ContactFilter{Limit: limit, Offset: offset})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, contact := range contacts {
		row := &rows[index[routing.Classify(contact.Service)]]
		row.ContactsTotal++
		if contact.Replied {
			row.ContactsReplied++
		}
	}

	chats, err := scanAll(func(limit, offset int) ([]domain.ChatSession, error) {
		return s.chats.List(ctx, repository.ChatFilter{ByCreation: true, Limit: limit, Offset: offset})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, chat := range chats {
		row := &rows[index[routing.Classify(chat.Subject)]]
		switch chat.Status {
		case domain.ChatStatusOpen:
			row.ChatsOpen++
		case domain.ChatStatusResolved:
			row.ChatsResolved++
		case domain.ChatStatusClosed:
			row.ChatsClosed++
		}
	}
	return rows, nil
}

var reportHeaders = []string{"Role", "Contacts", "Contacts Replied", "Chats Open", "Chats Resolved", "Chats Closed"}

const reportSheet = "Routing"

// ExportRoutingReport renders the routing report as an xlsx workbook.
func (s *ReportService) ExportRoutingReport(ctx context.Context) ([]byte, error) {
	rows, err := s.RoutingReport(ctx)
	if err != nil {
		return nil, err
	}
	data, err := renderRoutingWorkbook(rows)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return data, nil
}

func renderRoutingWorkbook(rows []RoutingReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range reportHeaders {
		if err := setCell(f, col+1, 1, header); err != nil {
			return nil, err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(reportHeaders), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 30); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, row := range rows {
		values := []any{string(row.Role), row.ContactsTotal, row.ContactsReplied, row.ChatsOpen, row.ChatsResolved, row.ChatsClosed}
		for col, value := range values {
			if err := setCell(f, col+1, i+2, value); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(reportSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
