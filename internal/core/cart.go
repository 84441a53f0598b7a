package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/logging"
)

// MaxCartQuantity bounds a single cart line.
const MaxCartQuantity = 10000

// Payment methods accepted at checkout.
var PaymentMethods = []string{"cash", "card", "bank_transfer", "online"}

// CartLine is one item in a customer's cart.
type CartLine struct {
	ItemCode  string          `json:"itemCode"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Available int64           `json:"available"`
}

// Cart is a customer's cart with its totals.
type Cart struct {
	CustomerID string          `json:"customerId"`
	Lines      []CartLine      `json:"lines"`
	ItemCount  int64           `json:"itemCount"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CartItemRequest adds or sets the quantity of one item.
type CartItemRequest struct {
	ItemCode string `json:"itemCode" jsonschema:"required,minLength=1,description=Inventory item code"`
	Quantity int64  `json:"quantity" jsonschema:"minimum=0,maximum=10000"`
}

// CheckoutRequest carries the buyer details for Checkout.
type CheckoutRequest struct {
	CustomerName  string `json:"customerName" jsonschema:"required,minLength=1"`
	CustomerEmail string `json:"customerEmail,omitempty" jsonschema:"format=email"`
	Method        string `json:"method" jsonschema:"required,enum=cash,enum=card,enum=bank_transfer,enum=online"`
}

// Order is the result of a successful checkout.
type Order struct {
	OrderRef   string          `json:"orderRef"`
	PaymentRef string          `json:"paymentRef"`
	CustomerID string          `json:"customerId"`
	Lines      []CartLine      `json:"lines"`
	ItemCount  int64           `json:"itemCount"`
	Total      decimal.Decimal `json:"total"`
	Method     string          `json:"method"`
	Status     string          `json:"status"`
	PlacedAt   time.Time       `json:"placedAt"`
}

// newCart builds a cart from its lines, filling line and cart totals.
func newCart(customerID string, lines []CartLine) *Cart {
	c := &Cart{CustomerID: customerID, Lines: lines, Subtotal: decimal.Zero}
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		c.Subtotal = c.Subtotal.Add(l.LineTotal)
		c.ItemCount += l.Quantity
	}
	return c
}

// paymentStatusFor returns the initial status of a checkout payment.
// Card and online payments settle immediately; the rest wait for confirmation.
func paymentStatusFor(method string) string {
	switch method {
	case "card", "online":
		return "completed"
	default:
		return "pending"
	}
}

// newRef returns a short upper-case reference such as "ORD-1A2B3C4D".
func newRef(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(id[:10])
}

func normalizeCustomer(customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", invalid("customer_id", "required field is empty")
	}
	return customerID, nil
}

func normalizeItemCode(itemCode string) (string, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return "", invalid("item_code", "required field is empty")
	}
	return itemCode, nil
}

func checkQuantity(qty int64, allowZero bool) error {
	lowest := int64(1)
	if allowZero {
		lowest = 0
	}
	if qty < lowest {
		return invalid("quantity", "must be at least %d", lowest)
	}
	if qty > MaxCartQuantity {
		return invalid("quantity", "must be at most %d", MaxCartQuantity)
	}
	return nil
}

// validateCheckout normalizes req and reports every invalid field.
func validateCheckout(req *CheckoutRequest) error {
	var errs ValidationErrors
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))

	if req.CustomerName == "" {
		errs.Add("customer_name", "required field is empty")
	}
	if req.CustomerEmail != "" && !strings.Contains(req.CustomerEmail, "@") {
		errs.Add("customer_email", "invalid email address")
	}
	valid := false
	for _, m := range PaymentMethods {
		if req.Method == m {
			valid = true
			break
		}
	}
	if !valid {
		errs.Add("method", "value must be one of: %s", strings.Join(PaymentMethods, ", "))
	}
	return errs.Err()
}

const cartLinesQuery = `
	SELECT c.item_code, COALESCE(i.name, c.item_code), c.quantity, c.unit_price, COALESCE(i.quantity, 0)
	FROM cart_items c
	LEFT JOIN inventory_items i ON i.item_code = c.item_code
	WHERE c.customer_id = $1
	ORDER BY c.added_at, c.item_code`

func cartLines(ctx context.Context, q DBTX, customerID, suffix string) ([]CartLine, error) {
	rows, err := q.Query(ctx, cartLinesQuery+suffix, customerID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CartLine, error) {
		var (
			l     CartLine
			price pgtype.Numeric
		)
		err := row.Scan(&l.ItemCode, &l.Name, &l.Quantity, &price, &l.Available)
		l.UnitPrice = numericOrZero(price)
		return l, err
	})
}

// GetCart returns the customer's cart. A customer without lines gets an empty cart.
func (s *Service) GetCart(ctx context.Context, customerID string) (*Cart, error) {
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	lines, err := cartLines(ctx, s.pool, customerID, "")
	if err != nil {
		return nil, err
	}
	return newCart(customerID, lines), nil
}

// stockFor locks a listed inventory item and returns its quantity and price.
func stockFor(ctx context.Context, tx pgx.Tx, itemCode string) (int64, decimal.Decimal, error) {
	var (
		qty   int64
		price pgtype.Numeric
	)
	err := tx.QueryRow(ctx, `
		SELECT quantity, unit_price FROM inventory_items
		WHERE item_code = $1 AND listed
		FOR UPDATE`, itemCode).Scan(&qty, &price)
	if err != nil {
		return 0, decimal.Zero, translateDBError(err)
	}
	return qty, numericOrZero(price), nil
}

// lockStock locks the inventory rows behind the cart lines in item_code
// order and returns their quantities. Unlisted or missing items are absent
// from the map.
func lockStock(ctx context.Context, tx pgx.Tx, lines []CartLine) (map[string]int64, error) {
	codes := make([]string, len(lines))
	for i, l := range lines {
		codes[i] = l.ItemCode
	}
	slices.Sort(codes)

	rows, err := tx.Query(ctx, `
		SELECT item_code, quantity FROM inventory_items
		WHERE item_code = ANY($1) AND listed
		ORDER BY item_code
		FOR UPDATE`, codes)
	if err != nil {
		return nil, fmt.Errorf("lock stock: %w", err)
	}
	defer rows.Close()

	stock := make(map[string]int64, len(codes))
	for rows.Next() {
		var (
			code string
			qty  int64
		)
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, err
		}
		stock[code] = qty
	}
	return stock, rows.Err()
}

// checkOrderTotal rejects orders a payment row cannot record.
func checkOrderTotal(total decimal.Decimal) error {
	if !total.IsPositive() {
		return invalid("cart", "order total must be greater than zero")
	}
	return nil
}

func insufficient(itemCode string, available int64) error {
	return fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, itemCode, available)
}

// AddToCart adds qty of an item, merging with an existing line. The unit
// price is captured when the line is first created.
func (s *Service) AddToCart(ctx context.Context, customerID, itemCode string, qty int64) (*Cart, error) {
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if itemCode, err = normalizeItemCode(itemCode); err != nil {
		return nil, err
	}
	if err := checkQuantity(qty, false); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		available, price, err := stockFor(ctx, tx, itemCode)
		if err != nil {
			return err
		}

		var current int64
		err = tx.QueryRow(ctx,
			`SELECT quantity FROM cart_items WHERE customer_id = $1 AND item_code = $2`,
			customerID, itemCode).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if current+qty > available {
			return insufficient(itemCode, available)
		}
		if current+qty > MaxCartQuantity {
			return invalid("quantity", "must be at most %d", MaxCartQuantity)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO carts (customer_id) VALUES ($1)
			ON CONFLICT (customer_id) DO UPDATE SET updated_at = now()`, customerID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO cart_items (customer_id, item_code, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (customer_id, item_code)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
			customerID, itemCode, qty, price)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	logging.FromContext(ctx).Debug("cart item added",
		"customer_id", customerID, "item_code", itemCode, "quantity", qty)
	return s.GetCart(ctx, customerID)
}

// UpdateCartItem sets the quantity of an existing line. Zero removes it.
func (s *Service) UpdateCartItem(ctx context.Context, customerID, itemCode string, qty int64) (*Cart, error) {
	if qty == 0 {
		return s.RemoveCartItem(ctx, customerID, itemCode)
	}
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if itemCode, err = normalizeItemCode(itemCode); err != nil {
		return nil, err
	}
	if err := checkQuantity(qty, true); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		available, _, err := stockFor(ctx, tx, itemCode)
		if err != nil {
			return err
		}
		if qty > available {
			return insufficient(itemCode, available)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE cart_items SET quantity = $3 WHERE customer_id = $1 AND item_code = $2`,
			customerID, itemCode, qty)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.GetCart(ctx, customerID)
}

// RemoveCartItem deletes one line from the cart.
func (s *Service) RemoveCartItem(ctx context.Context, customerID, itemCode string) (*Cart, error) {
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if itemCode, err = normalizeItemCode(itemCode); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE customer_id = $1 AND item_code = $2`, customerID, itemCode)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetCart(ctx, customerID)
}

// ClearCart removes every line from the cart.
func (s *Service) ClearCart(ctx context.Context, customerID string) error {
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Checkout turns the cart into an order: stock is locked and decremented,
// a payment is recorded and the cart is emptied, all in one transaction.
func (s *Service) Checkout(ctx context.Context, customerID string, req CheckoutRequest) (*Order, error) {
	customerID, err := normalizeCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if err := validateCheckout(&req); err != nil {
		return nil, err
	}

	now := s.env.Now()
	var order *Order
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		lines, err := cartLines(ctx, tx, customerID, " FOR UPDATE OF c")
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		stock, err := lockStock(ctx, tx, lines)
		if err != nil {
			return err
		}
		for i := range lines {
			available, ok := stock[lines[i].ItemCode]
			if !ok {
				return insufficient(lines[i].ItemCode, 0)
			}
			if lines[i].Quantity > available {
				return insufficient(lines[i].ItemCode, available)
			}
			lines[i].Available = available - lines[i].Quantity
			if _, err := tx.Exec(ctx,
				`UPDATE inventory_items SET quantity = quantity - $2, updated_at = now() WHERE item_code = $1`,
				lines[i].ItemCode, lines[i].Quantity); err != nil {
				return err
			}
		}

		cart := newCart(customerID, lines)
		if err := checkOrderTotal(cart.Subtotal); err != nil {
			return err
		}
		order = &Order{
			OrderRef:   newRef("ORD"),
			PaymentRef: newRef("PAY"),
			CustomerID: customerID,
			Lines:      cart.Lines,
			ItemCount:  cart.ItemCount,
			Total:      cart.Subtotal,
			Method:     req.Method,
			Status:     paymentStatusFor(req.Method),
			PlacedAt:   now,
		}

		var paymentID string
		err = tx.QueryRow(ctx, `
			INSERT INTO payments (id, payment_ref, customer_name, customer_email, amount, method,
				status, paid_on, order_ref, description)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
			RETURNING id::text`,
			uuid.NewString(), order.PaymentRef, req.CustomerName, req.CustomerEmail, order.Total,
			order.Method, order.Status, truncateDate(now), order.OrderRef,
			fmt.Sprintf("Storefront order %s (%d items)", order.OrderRef, order.ItemCount),
		).Scan(&paymentID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
			return err
		}

		_, err = LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionCheckout,
			Resource:     "payments",
			RecordID:     paymentID,
			RowsAffected: len(lines),
			Reason:       "storefront checkout " + order.OrderRef,
			After: map[string]any{
				"order_ref":   order.OrderRef,
				"payment_ref": order.PaymentRef,
				"customer_id": customerID,
				"total":       order.Total.StringFixed(2),
				"method":      order.Method,
				"status":      order.Status,
				"items":       order.ItemCount,
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", translateDBError(err))
	}

	logging.FromContext(ctx).Info("checkout completed",
		"customer_id", customerID,
		"order_ref", order.OrderRef,
		"total", order.Total.StringFixed(2),
		"status", order.Status,
	)
	return order, nil
}
