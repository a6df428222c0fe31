package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/api/middleware"
	"github.com/angelmondragon/shopcore-backend/api/responses"
	"github.com/angelmondragon/shopcore-backend/api/validators"
	internalorders "github.com/angelmondragon/shopcore-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
	"github.com/angelmondragon/shopcore-backend/pkg/logger"
)

type stampFunc func(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDTO, error)

func stampHandler(svc internalorders.Service, logg *logger.Logger, pick func(internalorders.Service) stampFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := pick(svc)(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorFromRequest(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (middleware.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return middleware.Actor{}, false
	}
	return actor, true
}

func toOrderActor(actor middleware.Actor) internalorders.Actor {
	return internalorders.Actor{UserID: actor.UserID, Role: actor.Role}
}
