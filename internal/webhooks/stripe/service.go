package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopcore-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
	"github.com/angelmondragon/shopcore-backend/pkg/metrics"
	"github.com/angelmondragon/shopcore-backend/pkg/types"
)

const cardOrderTask = "card_order_from_payment"

type cardOrderCreator interface {
	CreateCardOrderFromPayment(ctx context.Context, payment orders.PaymentConfirmation) (*orders.OrderDTO, error)
}

type taskDispatcher interface {
	Go(ctx context.Context, task Task)
}

type claimReleaser interface {
	Release(ctx context.Context, eventID string) error
}

type ServiceParams struct {
	Orders     cardOrderCreator
	Dispatcher taskDispatcher
	Guard      claimReleaser
	Metrics    *metrics.ShopMetrics
	Logger     *logger.Logger
}

// Service reacts to verified payment gateway events.
type Service struct {
	orders     cardOrderCreator
	dispatcher taskDispatcher
	guard      claimReleaser
	metrics    *metrics.ShopMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "task dispatcher required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	return &Service{
		orders:     params.Orders,
		dispatcher: params.Dispatcher,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// HandleEvent schedules order creation for completed checkout sessions and
// ignores every other event type. It returns once the work is scheduled.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType := string(event.Type)
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.metrics.IncWebhookEvent(eventType, "ignored")
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.metrics.IncWebhookEvent(eventType, "malformed")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	if session.PaymentStatus != "" && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.metrics.IncWebhookEvent(eventType, "unpaid")
		s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session completed without payment")
		return nil
	}

	payment := PaymentFromSession(&session)
	eventID := event.ID
	s.dispatcher.Go(ctx, Task{
		Name: cardOrderTask,
		Fields: map[string]any{
			"event_id": eventID,
			"cart_id":  payment.CartID,
		},
		Run: func(taskCtx context.Context) error {
			order, err := s.orders.CreateCardOrderFromPayment(taskCtx, payment)
			if err != nil {
				return err
			}
			s.logg.Info(s.logg.WithField(taskCtx, "order_id", order.ID.String()), "card order recorded")
			return nil
		},
		OnFailure: func(taskCtx context.Context, err error) {
			s.metrics.IncDetachedFailure(cardOrderTask)
			if releaseErr := s.guard.Release(taskCtx, eventID); releaseErr != nil {
				s.logg.Error(taskCtx, "release webhook idempotency key", releaseErr)
			}
		},
	})
	s.metrics.IncWebhookEvent(eventType, "dispatched")
	return nil
}

// PaymentFromSession extracts what order creation needs from a completed
// checkout session.
func PaymentFromSession(session *stripe.CheckoutSession) orders.PaymentConfirmation {
	email := strings.TrimSpace(session.CustomerEmail)
	if email == "" && session.CustomerDetails != nil {
		email = strings.TrimSpace(session.CustomerDetails.Email)
	}
	return orders.PaymentConfirmation{
		SessionID:        session.ID,
		CartID:           session.ClientReferenceID,
		CustomerEmail:    email,
		AmountTotalMinor: session.AmountTotal,
		ShippingAddress:  types.ShippingAddressFromMetadata(session.Metadata),
	}
}
