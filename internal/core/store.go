package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// LowStockItem is an inventory item at or below its reorder level.
type LowStockItem struct {
	ItemCode     string `json:"itemCode"`
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	Supplier     string `json:"supplier,omitempty"`
	Quantity     int64  `json:"quantity"`
	ReorderLevel int64  `json:"reorderLevel"`
	Shortfall    int64  `json:"shortfall"`
}

// LowStock returns items whose quantity is at or below the reorder level,
// largest shortfall first.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_code, name, COALESCE(category, ''), COALESCE(supplier, ''),
			quantity, reorder_level, reorder_level - quantity AS shortfall
		FROM inventory_items
		WHERE quantity <= reorder_level
		ORDER BY shortfall DESC, item_code`)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LowStockItem, error) {
		var it LowStockItem
		err := row.Scan(&it.ItemCode, &it.Name, &it.Category, &it.Supplier,
			&it.Quantity, &it.ReorderLevel, &it.Shortfall)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan low stock: %w", err)
	}
	return items, nil
}

// StoreProduct is a listed inventory item as shown in the storefront.
type StoreProduct struct {
	ItemCode    string          `json:"itemCode"`
	Name        string          `json:"name"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Available   int64           `json:"available"`
	AvgRating   decimal.Decimal `json:"avgRating"`
	ReviewCount int64           `json:"reviewCount"`
}

// Review is one feedback entry attached to a product.
type Review struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	Rating       int64     `json:"rating"`
	Subject      string    `json:"subject,omitempty"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StoreProductDetail is a product with its reviews, newest first.
type StoreProductDetail struct {
	StoreProduct
	Reviews []Review `json:"reviews"`
}

const storeProductSelect = `
	SELECT i.item_code, i.name, COALESCE(i.category, ''), COALESCE(i.description, ''),
		i.unit_price, i.quantity,
		COALESCE(ROUND(AVG(f.rating)::numeric, 1), 0), COUNT(f.id)
	FROM inventory_items i
	LEFT JOIN feedback f ON f.item_code = i.item_code`

// StoreProducts lists in-stock listed items, optionally narrowed by a search
// over code, name and description and by category.
func (s *Service) StoreProducts(ctx context.Context, search, category string) ([]StoreProduct, error) {
	wb := NewWhereBuilder()
	wb.AddValue("i.listed", "=", true)
	wb.AddValue("i.quantity", ">", 0)
	if category = strings.TrimSpace(category); category != "" {
		wb.AddValue("i.category", "=", strings.ToLower(category))
	}
	wb.AddILikeAny(search, "i.item_code", "i.name", "i.description")
	where, args := wb.Build()

	rows, err := s.pool.Query(ctx, storeProductSelect+where+`
		GROUP BY i.id
		ORDER BY i.name, i.item_code`, args...)
	if err != nil {
		return nil, fmt.Errorf("query store products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanStoreProduct)
	if err != nil {
		return nil, fmt.Errorf("scan store products: %w", err)
	}
	return products, nil
}

// StoreProduct returns one listed item and its reviews. Items that are not
// listed are reported as not found.
func (s *Service) StoreProduct(ctx context.Context, itemCode string) (*StoreProductDetail, error) {
	rows, err := s.pool.Query(ctx, storeProductSelect+`
		WHERE i.item_code = $1 AND i.listed
		GROUP BY i.id`, strings.TrimSpace(itemCode))
	if err != nil {
		return nil, fmt.Errorf("query store product: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, scanStoreProduct)
	if err != nil {
		return nil, translateDBError(err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id::text, customer_name, rating, COALESCE(subject, ''), message, created_at
		FROM feedback
		WHERE item_code = $1
		ORDER BY created_at DESC`, product.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var r Review
		err := row.Scan(&r.ID, &r.CustomerName, &r.Rating, &r.Subject, &r.Message, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan reviews: %w", err)
	}

	return &StoreProductDetail{StoreProduct: product, Reviews: reviews}, nil
}

func scanStoreProduct(row pgx.CollectableRow) (StoreProduct, error) {
	var (
		p          StoreProduct
		price, avg pgtype.Numeric
	)
	if err := row.Scan(&p.ItemCode, &p.Name, &p.Category, &p.Description,
		&price, &p.Available, &avg, &p.ReviewCount); err != nil {
		return p, err
	}
	p.UnitPrice = numericOrZero(price)
	p.AvgRating = numericOrZero(avg)
	return p, nil
}
