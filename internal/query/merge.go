package query

import (
	"sort"

	"github.com/kosarica/price-archive/internal/database"
)

type storeKey struct {
	chain   string
	storeID string
}

type productKey struct {
	chain     string
	productID string
}

// fingerprint is the merge key for a product: the barcode when non-empty,
// else the chain-local identity.
func fingerprint(p database.Product) string {
	if p.Barcode != "" {
		return "ean:" + p.Barcode
	}
	return "id:" + p.Chain + "/" + p.ProductID
}

// mergeGroups folds matched products, the city-filtered stores, and the
// loaded prices into ranked product groups. Only prices whose store is in
// the store set attach, which is how the city filter reaches prices;
// orphan prices are skipped. Groups without any attached price are dropped.
func mergeGroups(products []database.Product, stores []database.Store, prices []database.Price) []ProductGroup {
	storeIdx := make(map[storeKey]database.Store, len(stores))
	for _, s := range stores {
		storeIdx[storeKey{s.Chain, s.StoreID}] = s
	}

	groups := make(map[string]*ProductGroup)
	members := make(map[productKey]string, len(products))
	var order []string

	for _, p := range products {
		key := fingerprint(p)
		g, ok := groups[key]
		if !ok {
			g = &ProductGroup{
				Barcode:  p.Barcode,
				Name:     p.Name,
				Brand:    p.Brand,
				Category: p.Category,
				Unit:     p.Unit,
				Quantity: p.Quantity,
			}
			groups[key] = g
			order = append(order, key)
		}
		if !contains(g.Chains, p.Chain) {
			g.Chains = append(g.Chains, p.Chain)
		}
		members[productKey{p.Chain, p.ProductID}] = key
	}

	for _, pr := range prices {
		key, ok := members[productKey{pr.Chain, pr.ProductID}]
		if !ok {
			continue
		}
		store, ok := storeIdx[storeKey{pr.Chain, pr.StoreID}]
		if !ok {
			continue
		}
		g := groups[key]
		g.Prices = append(g.Prices, PriceObservation{
			Chain:        pr.Chain,
			StoreID:      pr.StoreID,
			City:         store.City,
			Price:        pr.Price,
			UnitPrice:    pr.UnitPrice,
			BestPrice30:  pr.BestPrice30,
			AnchorPrice:  pr.AnchorPrice,
			SpecialPrice: pr.SpecialPrice,
		})
	}

	out := make([]ProductGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if len(g.Prices) == 0 {
			continue
		}
		out = append(out, *g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Prices) != len(out[j].Prices) {
			return len(out[i].Prices) > len(out[j].Prices)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
