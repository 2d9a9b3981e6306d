package procurement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

const (
	purchaseOrdersPath = "/v1/purchase-orders"
	defaultTimeout     = 15 * time.Second
	maxErrorBodyLen    = 2048
)

var (
	errBaseURLRequired = errors.New("procurement base url is required")
	errLoggerRequired  = errors.New("procurement logger is required")
)

// Client talks to the purchasing system's HTTP API. The purchase order
// internals stay opaque; only the creation contract is modeled here.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *logger.Logger
}

// CreatePurchaseOrderParams is the request contract for a new PO.
type CreatePurchaseOrderParams struct {
	SKUID          uuid.UUID        `json:"sku_id"`
	VendorID       uuid.UUID        `json:"vendor_id"`
	Quantity       int              `json:"quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	IdempotencyKey string           `json:"idempotency_key"`
	Reference      string           `json:"reference,omitempty"`
}

// PurchaseOrder is the subset of the created PO this service stores.
type PurchaseOrder struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	VendorID string `json:"vendor_id"`
	Status   string `json:"status"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient initializes the procurement wrapper and validates the configuration.
func NewClient(ctx context.Context, cfg config.ProcurementConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logg,
	}

	logg.Info(ctx, "procurement client initialized")
	return c, nil
}

// NewIdempotencyKey returns a unique key for procurement operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "sl"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreatePurchaseOrder asks the purchasing system to raise a PO. Validation
// failures on the remote side come back as DEPENDENCY_ERROR with the remote
// message preserved, which the processor records on the trigger's notes.
func (c *Client) CreatePurchaseOrder(ctx context.Context, params CreatePurchaseOrderParams) (*PurchaseOrder, error) {
	if params.SKUID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku id required")
	}
	if params.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if params.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if strings.TrimSpace(params.IdempotencyKey) == "" {
		params.IdempotencyKey = c.NewIdempotencyKey("po.create")
	}

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"sku_id":    params.SKUID.String(),
		"vendor_id": params.VendorID.String(),
		"quantity":  params.Quantity,
	})
	c.logger.Info(logCtx, "creating purchase order")

	body, err := json.Marshal(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode purchase order request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+purchaseOrdersPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build purchase order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "procurement unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.decodeError(resp)
	}

	var po PurchaseOrder
	if err := json.NewDecoder(resp.Body).Decode(&po); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode purchase order response")
	}
	if strings.TrimSpace(po.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "procurement returned no purchase order id")
	}

	c.logger.Info(c.logger.WithField(logCtx, "po_id", po.ID), "purchase order created")
	return &po, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		msg := parsed.Error.Message
		if parsed.Error.Code != "" {
			msg = fmt.Sprintf("%s: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	return pkgerrors.New(
		pkgerrors.CodeDependency,
		fmt.Sprintf("procurement responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
	)
}
