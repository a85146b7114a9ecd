package daycare

import (
	"context"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// IncidentAPI covers the role-neutral /incidents resource
type IncidentAPI struct {
	rq Requester
}

func (i *IncidentAPI) List(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, i.rq, "/incidents", nil)
}

func (i *IncidentAPI) Get(ctx context.Context, id string) (*apiclient.Response, error) {
	return get(ctx, i.rq, "/incidents/"+seg(id), nil)
}

func (i *IncidentAPI) Create(ctx context.Context, incident Record) (*apiclient.Response, error) {
	return post(ctx, i.rq, "/incidents", incident)
}

func (i *IncidentAPI) Update(ctx context.Context, id string, incident Record) (*apiclient.Response, error) {
	return put(ctx, i.rq, "/incidents/"+seg(id), incident)
}

func (i *IncidentAPI) Delete(ctx context.Context, id string) (*apiclient.Response, error) {
	return del(ctx, i.rq, "/incidents/"+seg(id))
}

func (i *IncidentAPI) Stats(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, i.rq, "/incidents/stats", nil)
}
