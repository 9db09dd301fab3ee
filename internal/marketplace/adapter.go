package marketplace

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resellsync/internal/reconcile"
)

const (
	unknownSKU   = "UNKNOWN"
	unknownTitle = "Unknown Product"
)

var globalIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*:(\d+)$`)

func decodeBase64(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}

// DecodeGlobalID extracts the numeric id from a base64 relay id such as
// base64("MyInventoryType:305226").
func DecodeGlobalID(id string) (int64, error) {
	decoded, err := decodeBase64(id)
	if err != nil {
		return 0, fmt.Errorf("decode global id %q: %w", id, err)
	}
	match := globalIDPattern.FindStringSubmatch(string(decoded))
	if match == nil {
		return 0, fmt.Errorf("global id %q has no numeric suffix", id)
	}
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("global id %q is out of range", id)
	}
	return n, nil
}

// ValidateRef rejects platform listing references the update mutation cannot accept.
func ValidateRef(ref string) error {
	_, err := DecodeGlobalID(ref)
	return err
}

// Transform maps a raw inventory node onto a reconciliation item. Payout and
// commission come from the platform listing on commissionMarketplace.
func Transform(node InventoryNode, commissionMarketplace string) (reconcile.ScrapedItem, error) {
	id, err := DecodeGlobalID(node.ID)
	if err != nil {
		return reconcile.ScrapedItem{}, err
	}

	item := reconcile.ScrapedItem{
		ID:       id,
		SKU:      unknownSKU,
		Title:    unknownTitle,
		Stock:    node.Quantity,
		IsLowest: node.IsLowest,
	}
	switch {
	case node.IsSold:
		item.Stock = 0
	case node.IsListed != nil && !*node.IsListed:
		item.Stock = -1
	}

	if v := node.Variant; v != nil {
		if v.ID != "" {
			if variantID, err := DecodeGlobalID(v.ID); err == nil {
				s := strconv.FormatInt(variantID, 10)
				item.VariantID = &s
			}
		}
		if title := strings.TrimSpace(v.Title); title != "" {
			item.Size = &title
		}
		if v.LowestPrice != nil {
			price := *v.LowestPrice
			item.Price = &price
		}
		if p := v.Product; p != nil {
			if sku := strings.TrimSpace(p.SkuID); sku != "" {
				item.SKU = sku
			}
			if title := strings.TrimSpace(p.Title); title != "" {
				item.Title = title
			}
			if p.BrandName != nil && strings.TrimSpace(*p.BrandName) != "" {
				brand := strings.TrimSpace(*p.BrandName)
				item.Brand = &brand
			}
			for _, img := range p.Images.Edges {
				if img.Node.Image != "" {
					image := img.Node.Image
					item.ImageURL = &image
					break
				}
			}
		}
	}

	hundred := decimal.NewFromInt(100)
	matched := false
	for _, e := range node.PlatformListings.Edges {
		listing := e.Node
		if listing.ID != "" {
			item.ExternalListingRefs = append(item.ExternalListingRefs, listing.ID)
		}
		if matched || !strings.EqualFold(listing.Marketplace.Title, commissionMarketplace) {
			continue
		}
		matched = true
		if listing.ResellerPayoutPrice != nil {
			payout := int(listing.ResellerPayoutPrice.Round(0).IntPart())
			item.PayoutPrice = &payout
		}
		if pct := listing.Marketplace.CommissionPercentage; pct != nil {
			bps := int(pct.Mul(hundred).Round(0).IntPart())
			item.CommissionBPS = &bps
		}
	}
	return item, nil
}
