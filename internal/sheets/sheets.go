// Package sheets mirrors load requests into a Google spreadsheet. Every
// operation is best-effort from the pipeline's point of view; call sites log
// failures and move on.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/models"
)

// Column layout of the load sheet, A through P.
var headerRow = []interface{}{
	"Load ID", "Customer Name", "Customer Phone",
	"Pickup Location", "Pickup Address",
	"Delivery Location", "Delivery Address",
	"Cargo Type", "Weight", "Truck Type",
	"Pickup Time", "Delivery Time", "Deadline",
	"Status", "Created At", "Approved At",
}

// statusColumn is the A1-notation column holding the load status.
const statusColumn = "N"

// Client appends and updates load rows in a configured spreadsheet
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	enabled       bool
}

// NewClient creates a sheets client from service-account configuration.
// Missing credentials disable the integration only.
func NewClient(ctx context.Context, cfg config.SheetsConfig) (*Client, error) {
	if cfg.SpreadsheetID == "" || cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		log.Warn().Msg("Google Sheets credentials not provided, spreadsheet sync disabled")
		return &Client{enabled: false}, nil
	}

	conf := &jwt.Config{
		Email:      cfg.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets service")
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		enabled:       true,
	}, nil
}

// Initialize writes the header row. Called once at startup, best-effort.
func (c *Client) Initialize(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.Update(
		c.spreadsheetID,
		fmt.Sprintf("%s!A1:P1", c.sheetName),
		&sheetsapi.ValueRange{Values: [][]interface{}{headerRow}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to initialize sheet headers")
	}

	log.Info().Msg("Google sheet initialized with headers")
	return nil
}

// AppendLoad appends one row for a load request
func (c *Client) AppendLoad(ctx context.Context, load *models.LoadRequest) error {
	if !c.enabled {
		log.Debug().Str("load_id", load.LoadID).Msg("Spreadsheet sync disabled, skipping append")
		return nil
	}

	approvedAt := ""
	if load.ApprovedAt != nil {
		approvedAt = load.ApprovedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	row := []interface{}{
		load.LoadID,
		load.CustomerName,
		load.CustomerPhone,
		load.PickupLocation,
		load.PickupAddress,
		load.DeliveryLocation,
		load.DeliveryAddress,
		load.CargoType,
		load.Weight,
		load.TruckType,
		stringOrEmpty(load.PickupTime),
		stringOrEmpty(load.DeliveryTime),
		stringOrEmpty(load.Deadline),
		load.Status,
		load.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		approvedAt,
	}

	_, err := c.svc.Spreadsheets.Values.Append(
		c.spreadsheetID,
		fmt.Sprintf("%s!A:P", c.sheetName),
		&sheetsapi.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to append load row")
	}

	log.Info().Str("load_id", load.LoadID).Msg("Load saved to Google Sheets")
	return nil
}

// UpdateLoadStatus finds the row for a load code and rewrites its status
// column
func (c *Client) UpdateLoadStatus(ctx context.Context, loadID, status string) error {
	if !c.enabled {
		log.Debug().Str("load_id", loadID).Msg("Spreadsheet sync disabled, skipping status update")
		return nil
	}

	resp, err := c.svc.Spreadsheets.Values.Get(
		c.spreadsheetID,
		fmt.Sprintf("%s!A:A", c.sheetName),
	).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to read load id column")
	}

	rowIndex := -1
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == loadID {
			rowIndex = i
		}
	}
	if rowIndex < 0 {
		return errors.Errorf("load %s not found in sheet", loadID)
	}

	_, err = c.svc.Spreadsheets.Values.Update(
		c.spreadsheetID,
		fmt.Sprintf("%s!%s%d", c.sheetName, statusColumn, rowIndex+1),
		&sheetsapi.ValueRange{Values: [][]interface{}{{status}}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to update load status")
	}

	log.Info().Str("load_id", loadID).Str("status", status).Msg("Load status updated in Google Sheets")
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
