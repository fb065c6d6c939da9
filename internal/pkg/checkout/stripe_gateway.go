package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeGateway implements Gateway on top of Stripe Checkout.
type StripeGateway struct {
	sessions *session.Client
}

// NewStripeGateway creates a gateway bound to the given secret key instead of
// the package level stripe.Key.
func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{
		sessions: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.ProductImage != "" {
		productData.Images = stripe.StringSlice([]string{req.ProductImage})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}
	params.AddMetadata(MetadataCourseID, strconv.FormatUint(uint64(req.CourseID), 10))
	params.AddMetadata(MetadataUserID, strconv.FormatUint(uint64(req.UserID), 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	cs, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session: %w", err)
	}
	return fromStripeSession(cs), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.sessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("stripe session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("stripe get session: %w", err)
	}
	return fromStripeSession(cs), nil
}

func fromStripeSession(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Metadata:      cs.Metadata,
	}
}
