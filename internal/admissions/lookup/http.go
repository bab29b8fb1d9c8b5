package lookup

import (
	"context"
	"fmt"
	"net/url"

	httpclient "admissions-portal/internal/common/http"
)

// HTTPDirectory queries a JSON search endpoint of the form
// GET {url}?name=<query>&country=<country>.
type HTTPDirectory struct {
	client  *httpclient.Client
	baseURL string
}

func NewHTTPDirectory(client *httpclient.Client, baseURL string) *HTTPDirectory {
	return &HTTPDirectory{client: client, baseURL: baseURL}
}

func (d *HTTPDirectory) Search(ctx context.Context, query, country string) ([]University, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup url: %w", err)
	}
	q := u.Query()
	q.Set("name", query)
	if country != "" {
		q.Set("country", country)
	}
	u.RawQuery = q.Encode()

	var out []University
	if err := d.client.GetJSON(ctx, u.String(), &out); err != nil {
		return nil, err
	}
	return out, nil
}
