package woocommerce

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/infrastructure/telemetry"
)

// orderStatusProcessing is the status paid orders are created with
const orderStatusProcessing = "processing"

// RESTClient creates orders and looks up coupons through the REST API
type RESTClient struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

var (
	_ integration.OrderGateway = (*RESTClient)(nil)
	_ integration.CouponLookup = (*RESTClient)(nil)
)

// NewRESTClient creates a REST API client
func NewRESTClient(cfg Config, opts ...Option) (*RESTClient, error) {
	if err := cfg.ValidateREST(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &RESTClient{
		config: cfg,
		http:   newHTTPClient(cfg.Timeout, o.transport),
		logger: o.logger.Named("woocommerce"),
	}, nil
}

// CreateOrder implements integration.OrderGateway. Orders are created paid
// and processing with one line item. Creation is never retried.
func (c *RESTClient) CreateOrder(ctx context.Context, req *integration.OrderRequest) (order *integration.PlacedOrder, err error) {
	ctx, span := telemetry.StartSpan(ctx, "woocommerce", "create_order",
		attribute.Int64("woocommerce.product_id", req.ProductID),
		attribute.String("payment.method", string(req.PaymentMethod)),
	)
	defer func() { telemetry.Finish(span, err) }()

	r, err := doJSON(ctx, c.http, http.MethodPost, c.config.restEndpoint("orders", nil), nil, toOrderPayload(req))
	if err != nil {
		return nil, err
	}
	var resp orderResponse
	if err := decode(r, &resp); err != nil {
		return nil, err
	}
	if resp.ID == 0 {
		return nil, integration.ErrRemoteInvalidResponse
	}

	c.logger.Info("order created",
		zap.Int64("order_id", resp.ID),
		zap.String("item_id", req.Line.ItemID),
		zap.String("payment_method", string(req.PaymentMethod)),
	)
	return &integration.PlacedOrder{ID: resp.ID, OrderKey: resp.OrderKey, Status: resp.Status}, nil
}

// FindCoupon implements integration.CouponLookup
func (c *RESTClient) FindCoupon(ctx context.Context, code string) (coupon *integration.Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "woocommerce", "find_coupon", attribute.String("coupon.code", code))
	defer func() { telemetry.Finish(span, err) }()

	endpoint := c.config.restEndpoint("coupons", url.Values{"code": {code}})
	r, err := retryRead(ctx, func() (*reply, error) {
		return doJSON(ctx, c.http, http.MethodGet, endpoint, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var found []couponResponse
	if err := decode(r, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, integration.ErrCouponNotFound
	}
	return toCoupon(found[0])
}

func toOrderPayload(req *integration.OrderRequest) orderPayload {
	meta := make([]restMeta, 0, len(req.Line.Attributes()))
	for _, a := range req.Line.Attributes() {
		meta = append(meta, restMeta{Key: a.Key, Value: a.Value})
	}

	p := orderPayload{
		Status:             orderStatusProcessing,
		SetPaid:            true,
		PaymentMethod:      string(req.PaymentMethod),
		PaymentMethodTitle: req.PaymentMethod.Title(),
		Billing:            toRESTAddress(req.Billing),
		Shipping:           toRESTAddress(req.Shipping),
		LineItems: []restLineItem{{
			ProductID: req.ProductID,
			Quantity:  req.Line.Quantity,
			MetaData:  meta,
		}},
		CouponLines:  []restCouponLine{},
		CustomerNote: req.CustomerNote,
		MetaData:     make([]restMeta, 0, len(req.Meta)),
	}
	if req.CouponCode != "" {
		p.CouponLines = append(p.CouponLines, restCouponLine{Code: req.CouponCode})
	}
	for _, m := range req.Meta {
		p.MetaData = append(p.MetaData, restMeta{Key: m.Key, Value: m.Value})
	}
	return p
}

func toRESTAddress(a integration.Address) restAddress {
	return restAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

// couponTimeLayouts are the formats the REST API uses for coupon dates
var couponTimeLayouts = []string{"2006-01-02T15:04:05", time.RFC3339}

func toCoupon(r couponResponse) (*integration.Coupon, error) {
	amount := decimal.Zero
	if s := strings.TrimSpace(r.Amount); s != "" {
		a, err := decimal.NewFromString(s)
		if err != nil {
			return nil, integration.ErrRemoteInvalidResponse
		}
		amount = a
	}

	coupon := &integration.Coupon{
		Code:         strings.ToUpper(r.Code),
		DiscountType: integration.DiscountType(r.DiscountType),
		Amount:       amount,
		UsageCount:   r.UsageCount,
	}
	if r.UsageLimit != nil {
		coupon.UsageLimit = *r.UsageLimit
	}

	// date_expires_gmt is UTC; date_expires is site-local and read as UTC
	// only when the GMT field is missing
	for _, raw := range []*string{r.DateExpiresGMT, r.DateExpires} {
		if raw == nil || *raw == "" {
			continue
		}
		for _, layout := range couponTimeLayouts {
			if t, err := time.ParseInLocation(layout, *raw, time.UTC); err == nil {
				coupon.ExpiresAt = &t
				break
			}
		}
		if coupon.ExpiresAt != nil {
			break
		}
	}
	return coupon, nil
}
