package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/support-desk/internal/domain"
)

func seedReportData(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	tax := h.store.AddStaff("Tax", "tax@example.com", true, domain.RoleTaxation)
	user := h.store.AddUser("Priya", "priya@example.com")

	submit(t, h, "GST Registration")
	replied := submit(t, h, "Income Tax")
	submit(t, h, "Trademark")
	_, err := h.contacts.ReplyToContact(ctx, tax, ContactReplyInput{ContactID: replied.ID, Subject: "Re", Message: "done"})
	require.NoError(t, err)

	h.seedChat(t, user, tax, "TDS refund")
	closed := h.seedChat(t, user, tax, "GST query")
	require.NoError(t, h.store.Chats().UpdateStatus(ctx, &domain.ChatStatusChange{
		ChatID: closed.ID, ChangedBy: tax.ID, NewStatus: domain.ChatStatusClosed,
	}))
	h.seedChat(t, user, tax, "")
}

func TestRoutingReport(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	rows, err := h.reports.RoutingReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, len(domain.AllRoleTags))

	byRole := map[domain.RoleTag]RoutingReportRow{}
	for _, row := range rows {
		byRole[row.Role] = row
	}
	assert.Equal(t, RoutingReportRow{Role: domain.RoleTaxation, ContactsTotal: 2, ContactsReplied: 1, ChatsOpen: 1, ChatsClosed: 1}, byRole[domain.RoleTaxation])
	assert.Equal(t, 1, byRole[domain.RoleOtherRegistration].ContactsTotal)
	assert.Equal(t, 1, byRole[domain.RoleLiveSupport].ChatsOpen)
	assert.Zero(t, byRole[domain.RoleAdvisory].ContactsTotal)
}

func TestExportRoutingReport(t *testing.T) {
	h := newHarness(t)
	seedReportData(t, h)

	data, err := h.reports.ExportRoutingReport(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Routing"}, f.GetSheetList())
	rows, err := f.GetRows("Routing")
	require.NoError(t, err)
	require.Len(t, rows, len(domain.AllRoleTags)+1)
	assert.Equal(t, reportHeaders, rows[0])
	assert.Equal(t, []string{"taxation_support", "2", "1", "1", "0", "1"}, rows[2])
}
