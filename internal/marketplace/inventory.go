package marketplace

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const lowestNotLowestQuery = `query LowestAndNotLowest($isLowest: Boolean = true, $first: Int = 100, $after: String = "") {
  lowestNotLowest(isLowest: $isLowest, order: {}, first: $first, after: $after, filters: {isConsigned: {exact: false}}) {
    pageInfo { endCursor hasNextPage }
    totalCount
    edges {
      node {
        id
        quantity
        isSold
        isListed
        variant {
          id
          title
          lowestPrice
          product {
            skuId
            title
            brandName
            images { edges { node { image } } }
          }
        }
        platformListings {
          edges {
            node {
              id
              resellerPayoutPrice
              marketplace { title commissionPercentage }
            }
          }
        }
      }
    }
  }
}`

type edge[T any] struct {
	Node T `json:"node"`
}

type connection[T any] struct {
	PageInfo struct {
		EndCursor   string `json:"endCursor"`
		HasNextPage bool   `json:"hasNextPage"`
	} `json:"pageInfo"`
	TotalCount int       `json:"totalCount"`
	Edges      []edge[T] `json:"edges"`
}

// InventoryNode is one raw inventory unit as returned by the marketplace.
type InventoryNode struct {
	ID               string                          `json:"id"`
	Quantity         int                             `json:"quantity"`
	IsSold           bool                            `json:"isSold"`
	IsListed         *bool                           `json:"isListed"`
	Variant          *VariantNode                    `json:"variant"`
	PlatformListings connection[PlatformListingNode] `json:"platformListings"`

	// IsLowest is set from which lowestNotLowest query returned the node.
	IsLowest bool `json:"-"`
}

type VariantNode struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	LowestPrice *decimal.Decimal `json:"lowestPrice"`
	Product     *ProductNode     `json:"product"`
}

type ProductNode struct {
	SkuID     string  `json:"skuId"`
	Title     string  `json:"title"`
	BrandName *string `json:"brandName"`
	Images    connection[struct {
		Image string `json:"image"`
	}] `json:"images"`
}

type PlatformListingNode struct {
	ID                  string           `json:"id"`
	ResellerPayoutPrice *decimal.Decimal `json:"resellerPayoutPrice"`
	Marketplace         struct {
		Title                string           `json:"title"`
		CommissionPercentage *decimal.Decimal `json:"commissionPercentage"`
	} `json:"marketplace"`
}

// encodeCursor builds the relay array-connection cursor for offset.
func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("arrayconnection:%d", offset)))
}

// FetchInventory reads every lowest and not-lowest inventory unit, deduplicated
// by id. A unit seen in the lowest set keeps IsLowest even if it shows up again.
func (c *Client) FetchInventory(ctx context.Context) ([]InventoryNode, error) {
	var lowest, notLowest []InventoryNode
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lowest, err = c.fetchLowestNotLowest(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		notLowest, err = c.fetchLowestNotLowest(gctx, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(lowest)+len(notLowest))
	out := make([]InventoryNode, 0, len(lowest)+len(notLowest))
	for _, set := range [][]InventoryNode{lowest, notLowest} {
		for _, node := range set {
			if idx, ok := seen[node.ID]; ok {
				out[idx].IsLowest = out[idx].IsLowest || node.IsLowest
				continue
			}
			seen[node.ID] = len(out)
			out = append(out, node)
		}
	}

	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"lowest":     len(lowest),
		"not_lowest": len(notLowest),
		"unique":     len(out),
	}), "marketplace inventory fetched")
	return out, nil
}

// fetchLowestNotLowest reads the first page, then every remaining page by offset
// cursor in parallel. A page that still fails after retries is logged and skipped;
// the shrinking snapshot surfaces as a partial-fetch warning downstream.
func (c *Client) fetchLowestNotLowest(ctx context.Context, isLowest bool) ([]InventoryNode, error) {
	var first connection[InventoryNode]
	err := withRetry(ctx, c.maxRetries, c.backoff, func() error {
		var err error
		first, err = c.fetchPage(ctx, isLowest, "")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch first page (is_lowest=%t): %w", isLowest, err)
	}

	items := nodesOf(first, isLowest)
	if !first.PageInfo.HasNextPage || first.TotalCount <= c.pageSize {
		return items, nil
	}

	totalPages := (first.TotalCount + c.pageSize - 1) / c.pageSize
	pages := make([][]InventoryNode, totalPages)

	var mu sync.Mutex
	failed := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for page := 1; page < totalPages; page++ {
		cursor := encodeCursor(page*c.pageSize - 1)
		g.Go(func() error {
			var conn connection[InventoryNode]
			err := withRetry(gctx, c.maxRetries, c.backoff, func() error {
				var err error
				conn, err = c.fetchPage(gctx, isLowest, cursor)
				return err
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logg.Error(c.logg.WithFields(ctx, map[string]any{"page": page + 1, "is_lowest": isLowest}), "inventory page failed after retries", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			pages[page] = nodesOf(conn, isLowest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range pages[1:] {
		items = append(items, p...)
	}
	if failed > 0 {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"failed_pages": failed, "total_pages": totalPages}), "inventory fetch incomplete")
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, isLowest bool, after string) (connection[InventoryNode], error) {
	var out struct {
		LowestNotLowest connection[InventoryNode] `json:"lowestNotLowest"`
	}
	err := c.execute(ctx, graphqlRequest{
		OperationName: "LowestAndNotLowest",
		Query:         lowestNotLowestQuery,
		Variables: map[string]any{
			"isLowest": isLowest,
			"first":    c.pageSize,
			"after":    after,
		},
	}, &out)
	return out.LowestNotLowest, err
}

func nodesOf(conn connection[InventoryNode], isLowest bool) []InventoryNode {
	out := make([]InventoryNode, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		node := e.Node
		node.IsLowest = isLowest
		out = append(out, node)
	}
	return out
}
