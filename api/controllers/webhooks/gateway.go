package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/crumbly-backend/api/responses"
	gatewaywebhook "github.com/angelmondragon/crumbly-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
)

// maxEventBytes bounds how much of a delivery is read before verification.
const maxEventBytes = 1 << 20

type GatewayReconciler interface {
	Reconcile(ctx context.Context, event *gatewaywebhook.Event) (*gatewaywebhook.Result, error)
}

type gatewayWebhookGuard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type webhookOutcomeRecorder interface {
	WebhookOutcome(outcome string)
}

type eventAck struct {
	Outcome string `json:"outcome"`
}

// GatewayWebhook verifies and reconciles payment gateway event deliveries.
func GatewayWebhook(svc GatewayReconciler, eventsSecret string, guard gatewayWebhookGuard, recorder webhookOutcomeRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if eventsSecret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway events secret not configured"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(gatewaywebhook.SignatureHeader)
		if !gatewaywebhook.VerifyEventSignature(payload, signature, eventsSecret) {
			record(recorder, metrics.OutcomeInvalidSignature)
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"remote_addr":   r.RemoteAddr,
					"has_signature": signature != "",
				})
				logg.Warn(logCtx, "gateway webhook signature rejected")
			}
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeSignature, "invalid event signature"))
			return
		}

		event, err := gatewaywebhook.DecodeEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if event.Event != gatewaywebhook.EventTransactionUpdated {
			record(recorder, metrics.OutcomeIgnoredEvent)
			responses.WriteSuccess(w, eventAck{Outcome: metrics.OutcomeIgnoredEvent})
			return
		}

		key := event.DedupeKey()
		if guard != nil && key == "" {
			guard = nil
		}
		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if seen {
				record(recorder, metrics.OutcomeDuplicate)
				responses.WriteSuccess(w, eventAck{Outcome: metrics.OutcomeDuplicate})
				return
			}
		}

		result, err := svc.Reconcile(ctx, event)
		if err != nil {
			if guard != nil {
				_ = guard.Delete(ctx, key)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, eventAck{Outcome: result.Outcome})
	}
}

func record(recorder webhookOutcomeRecorder, outcome string) {
	if recorder != nil {
		recorder.WebhookOutcome(outcome)
	}
}
