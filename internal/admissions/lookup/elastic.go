package lookup

import (
	"bytes"
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/goccy/go-json"
)

// ElasticDirectory searches a universities index with documents shaped
// {"name": ..., "country": ...}.
type ElasticDirectory struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticDirectory(client *elasticsearch.Client, index string, size int) *ElasticDirectory {
	if size <= 0 {
		size = 20
	}
	return &ElasticDirectory{client: client, index: index, size: size}
}

func (d *ElasticDirectory) query(query, country string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match_phrase_prefix": map[string]interface{}{"name": query},
			},
		},
	}
	if country != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"country": country},
			},
		}
	}
	return map[string]interface{}{
		"size":  d.size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source University `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (d *ElasticDirectory) Search(ctx context.Context, query, country string) ([]University, error) {
	body, err := json.Marshal(d.query(query, country))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search: %w", err)
	}

	res, err := d.client.Search(
		d.client.Search.WithContext(ctx),
		d.client.Search.WithIndex(d.index),
		d.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	out := make([]University, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
