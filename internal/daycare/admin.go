package daycare

import (
	"context"
	"net/url"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// AdminAPI covers the /admin namespace plus the shared /payments endpoints
// the admin screens call
type AdminAPI struct {
	rq Requester
}

// Users

func (a *AdminAPI) Users(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/users", nil)
}

// Babysitters lists users with the babysitter role
func (a *AdminAPI) Babysitters(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/users", url.Values{"role": {"babysitter"}})
}

func (a *AdminAPI) UpdateUserRole(ctx context.Context, userID, role string) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/users/"+seg(userID)+"/role", map[string]string{"role": role})
}

func (a *AdminAPI) Stats(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/stats", nil)
}

// Schedule

func (a *AdminAPI) Schedule(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/schedule", nil)
}

func (a *AdminAPI) CreateScheduleEvent(ctx context.Context, event Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/schedule", event)
}

func (a *AdminAPI) UpdateScheduleEvent(ctx context.Context, eventID string, event Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/schedule/"+seg(eventID), event)
}

func (a *AdminAPI) DeleteScheduleEvent(ctx context.Context, eventID string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/schedule/"+seg(eventID))
}

// Children

func (a *AdminAPI) Children(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/children", nil)
}

func (a *AdminAPI) CreateChild(ctx context.Context, child Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/children", child)
}

func (a *AdminAPI) UpdateChild(ctx context.Context, childID string, child Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/children/"+seg(childID), child)
}

func (a *AdminAPI) DeleteChild(ctx context.Context, childID string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/children/"+seg(childID))
}

// Attendance

// Attendance lists records for a date (YYYY-MM-DD)
func (a *AdminAPI) Attendance(ctx context.Context, date string) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/attendance", dateQuery(date))
}

func (a *AdminAPI) AddAttendanceRecord(ctx context.Context, record Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/attendance", record)
}

func (a *AdminAPI) UpdateAttendanceStatus(ctx context.Context, id, status string) (*apiclient.Response, error) {
	return patch(ctx, a.rq, "/admin/attendance/"+seg(id)+"/status", map[string]string{"status": status})
}

func (a *AdminAPI) DeleteAttendanceRecord(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/attendance/"+seg(id))
}

// AttendanceReport downloads the report for a date as a binary blob
func (a *AdminAPI) AttendanceReport(ctx context.Context, date string) (*apiclient.Response, error) {
	return getBlob(ctx, a.rq, "/admin/attendance/report", dateQuery(date))
}

// Payments

func (a *AdminAPI) Payments(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/payments", nil)
}

func (a *AdminAPI) ProcessPayment(ctx context.Context, payment Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/payments", payment)
}

func (a *AdminAPI) UpdatePaymentStatus(ctx context.Context, paymentID, status string) (*apiclient.Response, error) {
	return patch(ctx, a.rq, "/admin/payments/"+seg(paymentID)+"/status", map[string]string{"status": status})
}

func (a *AdminAPI) UpdatePayment(ctx context.Context, paymentID string, payment Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/payments/"+seg(paymentID), payment)
}

func (a *AdminAPI) DeletePayment(ctx context.Context, paymentID string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/payments/"+seg(paymentID))
}

// PaymentReceipt downloads a receipt as a binary blob
func (a *AdminAPI) PaymentReceipt(ctx context.Context, paymentID string) (*apiclient.Response, error) {
	return getBlob(ctx, a.rq, "/admin/payments/"+seg(paymentID)+"/receipt", nil)
}

func (a *AdminAPI) MarkBabysitterPaid(ctx context.Context, babysitterID string, payment Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/payments/babysitter/"+seg(babysitterID)+"/paid", payment)
}

func (a *AdminAPI) OverduePayments(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/payments/overdue", nil)
}

func (a *AdminAPI) ChildPayments(ctx context.Context, childID string) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/payments/child/"+seg(childID)+"/history", nil)
}

func (a *AdminAPI) RecordChildPayment(ctx context.Context, payment Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/payments/child", payment)
}

func (a *AdminAPI) PaymentStats(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/payments/stats", nil)
}

func (a *AdminAPI) SendPaymentReminder(ctx context.Context, parentID string) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/payments/parent/"+seg(parentID)+"/reminder", nil)
}

// Security

func (a *AdminAPI) SecuritySettings(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/security/settings", nil)
}

func (a *AdminAPI) UpdateSecuritySettings(ctx context.Context, settings Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/security/settings", settings)
}

func (a *AdminAPI) SecurityLogs(ctx context.Context, params url.Values) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/security/logs", params)
}

// Profile

func (a *AdminAPI) Profile(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/profile", nil)
}

func (a *AdminAPI) UpdateProfile(ctx context.Context, profile Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/profile", profile)
}

// Notifications

func (a *AdminAPI) Notifications(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/notifications", nil)
}

func (a *AdminAPI) CreateNotification(ctx context.Context, n Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/notifications", n)
}

func (a *AdminAPI) UpdateNotification(ctx context.Context, id string, n Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/notifications/"+seg(id), n)
}

func (a *AdminAPI) DeleteNotification(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/notifications/"+seg(id))
}

func (a *AdminAPI) MarkNotificationRead(ctx context.Context, id string) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/notifications/"+seg(id)+"/mark-as-read", nil)
}

// Communications

func (a *AdminAPI) Communications(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/communications", nil)
}

func (a *AdminAPI) CreateCommunication(ctx context.Context, c Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/communications", c)
}

func (a *AdminAPI) DeleteCommunication(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/communications/"+seg(id))
}

// Reports

func (a *AdminAPI) Reports(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/reports", nil)
}

// GenerateReport posts {type: reportType, ...params}
func (a *AdminAPI) GenerateReport(ctx context.Context, reportType string, params Record) (*apiclient.Response, error) {
	body := Record{}
	for k, v := range params {
		body[k] = v
	}
	body["type"] = reportType
	return post(ctx, a.rq, "/admin/reports", body)
}

// Budgets

func (a *AdminAPI) Budgets(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/budgets", nil)
}

func (a *AdminAPI) Budget(ctx context.Context, id string) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/admin/budgets/"+seg(id), nil)
}

func (a *AdminAPI) CreateBudget(ctx context.Context, b Record) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/admin/budgets", b)
}

func (a *AdminAPI) UpdateBudget(ctx context.Context, id string, b Record) (*apiclient.Response, error) {
	return put(ctx, a.rq, "/admin/budgets/"+seg(id), b)
}

func (a *AdminAPI) DeleteBudget(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, a.rq, "/admin/budgets/"+seg(id))
}
