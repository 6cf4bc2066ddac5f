package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/models"
)

// ElasticClient indexes load requests for dashboard search. Indexing is
// best-effort, same contract as the spreadsheet sync.
type ElasticClient struct {
	client  *elasticsearch.Client
	config  config.ElasticConfig
	enabled bool
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return &ElasticClient{enabled: false}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client:  client,
		config:  cfg,
		enabled: true,
	}, nil
}

// IndexLoad indexes a load request document keyed by its load code
func (c *ElasticClient) IndexLoad(ctx context.Context, load *models.LoadRequest) error {
	if !c.enabled {
		return nil
	}

	doc := map[string]interface{}{
		"id":                load.ID,
		"load_id":           load.LoadID,
		"customer_name":     load.CustomerName,
		"customer_phone":    load.CustomerPhone,
		"pickup_location":   load.PickupLocation,
		"delivery_location": load.DeliveryLocation,
		"cargo_type":        load.CargoType,
		"weight":            load.Weight,
		"truck_type":        load.TruckType,
		"status":            load.Status,
		"created_at":        load.CreatedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal load document")
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: load.LoadID,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to index load request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.New(fmt.Sprintf("failed to index load request: %s", res.String()))
	}

	log.Debug().Str("load_id", load.LoadID).Msg("Load request indexed")
	return nil
}
