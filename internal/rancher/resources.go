package rancher

import "github.com/MrSnakeDoc/lbsync/internal/domain"

// collection is the envelope of every list endpoint.
type collection[T any] struct {
	Data       []T `json:"data"`
	Pagination *struct {
		Next string `json:"next"`
	} `json:"pagination,omitempty"`
}

func (c collection[T]) next() string {
	if c.Pagination == nil {
		return ""
	}
	return c.Pagination.Next
}

type stackResource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	Links struct {
		Services string `json:"services"`
	} `json:"links"`
}

func (r stackResource) toDomain() domain.Stack {
	return domain.Stack{
		ID:           r.ID,
		Name:         r.Name,
		State:        r.State,
		ServicesLink: r.Links.Services,
	}
}

type serviceResource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	State        string `json:"state"`
	LaunchConfig *struct {
		Labels map[string]string `json:"labels"`
	} `json:"launchConfig"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
	Actions struct {
		SetServiceLinks string `json:"setservicelinks"`
	} `json:"actions"`
}

func (r serviceResource) toDomain(stackName string) domain.Service {
	svc := domain.Service{
		ID:                    r.ID,
		Name:                  r.Name,
		Type:                  r.Type,
		State:                 r.State,
		StackName:             stackName,
		SelfLink:              r.Links.Self,
		SetServiceLinksAction: r.Actions.SetServiceLinks,
	}
	if r.LaunchConfig != nil {
		svc.Labels = r.LaunchConfig.Labels
	}
	if svc.Labels == nil {
		svc.Labels = map[string]string{}
	}
	return svc
}

type certificateResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type setServiceLinksRequest struct {
	ServiceLinks []domain.ServiceLinkEntry `json:"serviceLinks"`
}

type setCertificatesRequest struct {
	CertificateIDs []string `json:"certificateIds"`
}
