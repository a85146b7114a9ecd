package daycare

import (
	"context"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// RoleNotifications fetches /{role}/notifications for whichever role is
// signed in
func (a *API) RoleNotifications(ctx context.Context, role string) (*apiclient.Response, error) {
	return get(ctx, a.Admin.rq, "/"+seg(role)+"/notifications", nil)
}

// MarkRoleNotificationRead marks one notification read. The admin
// namespace names the action mark-as-read; the others name it read.
func (a *API) MarkRoleNotificationRead(ctx context.Context, role, id string) (*apiclient.Response, error) {
	switch role {
	case "admin":
		return a.Admin.MarkNotificationRead(ctx, id)
	case "babysitter":
		return a.Babysitter.MarkNotificationRead(ctx, id)
	default:
		return put(ctx, a.Admin.rq, "/"+seg(role)+"/notifications/"+seg(id)+"/read", nil)
	}
}
