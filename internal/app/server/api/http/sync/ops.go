package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pull",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync",
		Summary:     "Read synchronized data",
		Description: "Returns a full payload, a delta against the supplied watermark, or an unchanged shortcut",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Write synchronized data",
		Description: "Replaces every section present in the payload with the client's copy",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) migrateGuestOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-migrate-guest",
		Method:      http.MethodPost,
		Path:        "/api/v1/migrate-guest-data",
		Summary:     "Merge guest session data into the account",
		Description: "One-time non-destructive merge of an anonymous session's local data",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
