package daycare

import (
	"context"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// BabysitterAPI covers the /babysitter namespace
type BabysitterAPI struct {
	rq Requester
}

func (b *BabysitterAPI) Children(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/children", nil)
}

func (b *BabysitterAPI) Child(ctx context.Context, childID string) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/children/"+seg(childID), nil)
}

func (b *BabysitterAPI) AddActivity(ctx context.Context, childID string, activity Record) (*apiclient.Response, error) {
	return post(ctx, b.rq, "/babysitter/children/"+seg(childID)+"/activities", activity)
}

func (b *BabysitterAPI) ChildActivities(ctx context.Context, childID string) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/children/"+seg(childID)+"/activities", nil)
}

func (b *BabysitterAPI) Schedule(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/schedule", nil)
}

func (b *BabysitterAPI) RecordAttendance(ctx context.Context, record Record) (*apiclient.Response, error) {
	return post(ctx, b.rq, "/babysitter/attendance", record)
}

// Attendance lists records for a date (YYYY-MM-DD)
func (b *BabysitterAPI) Attendance(ctx context.Context, date string) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/attendance", dateQuery(date))
}

func (b *BabysitterAPI) Profile(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/profile", nil)
}

func (b *BabysitterAPI) UpdateProfile(ctx context.Context, profile Record) (*apiclient.Response, error) {
	return put(ctx, b.rq, "/babysitter/profile", profile)
}

func (b *BabysitterAPI) Notifications(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/notifications", nil)
}

func (b *BabysitterAPI) MarkNotificationRead(ctx context.Context, id string) (*apiclient.Response, error) {
	return put(ctx, b.rq, "/babysitter/notifications/"+seg(id)+"/read", nil)
}

func (b *BabysitterAPI) MarkAllNotificationsRead(ctx context.Context) (*apiclient.Response, error) {
	return put(ctx, b.rq, "/babysitter/notifications/read-all", nil)
}

func (b *BabysitterAPI) DeleteNotification(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, b.rq, "/babysitter/notifications/"+seg(id))
}

// Incidents reported by the signed-in babysitter

func (b *BabysitterAPI) Incidents(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, b.rq, "/babysitter/incidents", nil)
}

func (b *BabysitterAPI) CreateIncident(ctx context.Context, incident Record) (*apiclient.Response, error) {
	return post(ctx, b.rq, "/babysitter/incidents", incident)
}

func (b *BabysitterAPI) UpdateIncident(ctx context.Context, id string, incident Record) (*apiclient.Response, error) {
	return put(ctx, b.rq, "/babysitter/incidents/"+seg(id), incident)
}
