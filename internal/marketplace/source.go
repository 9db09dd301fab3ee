package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/resellsync/internal/reconcile"
	"github.com/angelmondragon/resellsync/pkg/config"
)

const defaultCommissionMarketplace = "culturecircle"

// Source exposes the marketplace inventory as a reconciliation snapshot.
type Source struct {
	client                *Client
	name                  string
	baseURL               string
	commissionMarketplace string
}

// NewSource binds a client to the platform identity from configuration.
func NewSource(client *Client, cfg config.MarketplaceConfig) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	name := strings.TrimSpace(cfg.PlatformName)
	if name == "" {
		return nil, fmt.Errorf("platform name required")
	}
	commission := strings.TrimSpace(cfg.CommissionMarketplace)
	if commission == "" {
		commission = defaultCommissionMarketplace
	}
	return &Source{
		client:                client,
		name:                  name,
		baseURL:               strings.TrimSpace(cfg.BaseURL),
		commissionMarketplace: commission,
	}, nil
}

func (s *Source) Name() string    { return s.name }
func (s *Source) BaseURL() string { return s.baseURL }

// Fetch reads and transforms the full inventory. Nodes whose id cannot be
// decoded are logged and left out.
func (s *Source) Fetch(ctx context.Context) ([]reconcile.ScrapedItem, error) {
	nodes, err := s.client.FetchInventory(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]reconcile.ScrapedItem, 0, len(nodes))
	skipped := 0
	for _, node := range nodes {
		item, err := Transform(node, s.commissionMarketplace)
		if err != nil {
			skipped++
			s.client.logg.Warn(s.client.logg.WithField(ctx, "error", err.Error()), "skipping undecodable inventory node")
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		s.client.logg.Warn(s.client.logg.WithFields(ctx, map[string]any{"skipped": skipped, "kept": len(items)}), "inventory nodes skipped")
	}
	return items, nil
}
