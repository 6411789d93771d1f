// Package sheets is the row-source adapter: it reads the registry
// worksheet as a whole snapshot and writes single rows back for the
// admin edit flow.
package sheets

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/shohabbosdev/registrybot/internal/registry"
)

// fetchRange covers every column the schema reads (A..AI).
const fetchRange = "A1:AI"

// credentialsEnv holds base64-encoded service account JSON in deployed
// environments; credentialsFile is the local-development fallback.
const (
	credentialsEnv  = "GOOGLE_CREDENTIALS"
	credentialsFile = "credentials.json"
)

type Client struct {
	svc *sheetsapi.Service
}

// NewClient builds a Sheets API client from service account
// credentials. credFile overrides the default credentials.json lookup;
// the GOOGLE_CREDENTIALS env var wins over both.
func NewClient(ctx context.Context, credFile string) (*Client, error) {
	data, err := loadCredentials(credFile)
	if err != nil {
		return nil, err
	}
	conf, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func loadCredentials(credFile string) ([]byte, error) {
	if encoded := os.Getenv(credentialsEnv); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", credentialsEnv, err)
		}
		return data, nil
	}
	if credFile == "" {
		credFile = credentialsFile
	}
	data, err := os.ReadFile(credFile)
	if err != nil {
		return nil, fmt.Errorf("no %s env var and no credentials file: %w", credentialsEnv, err)
	}
	return data, nil
}

// FetchSnapshot reads the header row plus all data rows of one
// worksheet. Implements registry.Fetcher.
func (c *Client) FetchSnapshot(ctx context.Context, spreadsheetID, worksheet string) (registry.Snapshot, error) {
	rng := fmt.Sprintf("%s!%s", worksheet, fetchRange)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	snap := make(registry.Snapshot, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		snap = append(snap, cells)
	}
	log.Printf("[sheets] fetched %d rows from %s", len(snap), worksheet)
	return snap, nil
}

// UpdateRow overwrites one sheet row starting at column A. rowIndex is
// the 1-based sheet row number.
func (c *Client) UpdateRow(ctx context.Context, spreadsheetID, worksheet string, rowIndex int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	rng := fmt.Sprintf("%s!A%d", worksheet, rowIndex)
	_, err := c.svc.Spreadsheets.Values.
		Update(spreadsheetID, rng, &sheetsapi.ValueRange{Values: [][]any{cells}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	log.Printf("[sheets] updated row %d in %s", rowIndex, worksheet)
	return nil
}
