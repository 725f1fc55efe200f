package anthropic

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// Claude models share a 200k token window; /v1/models does not report it.
const contextWindow = 200000

// maxModelPages bounds catalog pagination.
const maxModelPages = 10

type modelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
	HasMore bool   `json:"has_more"`
	LastID  string `json:"last_id"`
}

// fetchModels implements providers.FetchFunc.
func (p *Provider) fetchModels(ctx context.Context) ([]providers.ModelDescriptor, error) {
	if static := p.Config().Models; len(static) > 0 {
		out := make([]providers.ModelDescriptor, 0, len(static))
		for _, id := range static {
			out = append(out, p.descriptor(id, id))
		}
		return out, nil
	}

	var (
		out   []providers.ModelDescriptor
		after string
	)
	for page := 0; page < maxModelPages; page++ {
		query := url.Values{"limit": {"1000"}}
		if after != "" {
			query.Set("after_id", after)
		}

		var list modelList
		err := p.SendJSON(ctx, providers.Request{
			Method: http.MethodGet,
			Path:   "/v1/models?" + query.Encode(),
		}, nil, &list)
		if err != nil {
			return nil, err
		}

		for _, m := range list.Data {
			if m.ID == "" {
				continue
			}
			name := m.DisplayName
			if name == "" {
				name = m.ID
			}
			out = append(out, p.descriptor(m.ID, name))
		}

		if !list.HasMore || list.LastID == "" {
			break
		}
		after = list.LastID
	}
	return out, nil
}

func (p *Provider) descriptor(id, name string) providers.ModelDescriptor {
	return providers.ModelDescriptor{
		ID:            p.FormatModelName(id),
		DisplayName:   name,
		ContextLength: contextWindow,
		Capabilities:  providers.Capabilities{Text: true, Images: true},
		OwnedBy:       "anthropic",
	}
}
