package sync

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"pantrykeeper/internal/app/server/api/http/middleware/auth"
	"pantrykeeper/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pullOp(), h.pull)
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.migrateGuestOp(), h.migrateGuest)
}

func (h *Handler) pull(ctx context.Context, input *pullInput) (*pullOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	response, err := h.service.Pull(ctx, userID, input.LastSyncedAt)
	if err != nil {
		h.log.Error("pull failed", "user_id", userID, "error", err)
		return nil, mapError(err)
	}

	return &pullOutput{Body: *response}, nil
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	response, err := h.service.Push(ctx, userID, input.Body)
	if err != nil {
		h.log.Error("push failed", "user_id", userID, "error", err)
		return nil, mapError(err)
	}

	return &pushOutput{Body: *response}, nil
}

func (h *Handler) migrateGuest(ctx context.Context, input *migrateInput) (*migrateOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	response, err := h.service.MigrateGuest(ctx, userID, input.Body)
	if err != nil {
		h.log.Error("guest migration failed", "user_id", userID, "error", err)
		return nil, mapError(err)
	}

	return &migrateOutput{Body: *response}, nil
}

// mapError converts domain errors into the HTTP codes the clients rely on;
// everything else surfaces as a generic server error.
func mapError(err error) error {
	var limitErr *sync.CookwareLimitError
	if errors.As(err, &limitErr) {
		return cookwareLimitError(limitErr.Limit, limitErr.Count)
	}

	var featureErr *sync.FeatureNotAvailableError
	if errors.As(err, &featureErr) {
		return featureNotAvailableError(featureErr.Feature)
	}

	if errors.Is(err, sync.ErrMissingData) {
		return missingDataError()
	}

	return huma.Error500InternalServerError("internal error")
}
