package records

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/httpx"
	"go.uber.org/zap"
)

type RecordsHandler interface {
	Routes() chi.Router
}

type recordsHandler struct {
	repo          RecordsRepo
	authenticator *authz.Authenticator
	gate          *authz.Gate
	logger        *zap.Logger
}

func NewRecordsHandler(repo RecordsRepo, authenticator *authz.Authenticator, gate *authz.Gate, logger *zap.Logger) RecordsHandler {
	return &recordsHandler{
		repo:          repo,
		authenticator: authenticator,
		gate:          gate,
		logger:        logger,
	}
}

func (h *recordsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authenticator.Authenticate)
	r.With(h.gate.Require(authz.OpListPatients)).Get("/patients", serveList(h, h.repo.ListPatients))
	r.With(h.gate.Require(authz.OpListEquipment)).Get("/equipment", serveList(h, h.repo.ListEquipment))
	r.With(h.gate.Require(authz.OpListStaff)).Get("/staff", serveList(h, h.repo.ListStaff))
	return r
}

func serveList[T any](h *recordsHandler, fetch func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		items, err := fetch(ctx)
		if err != nil {
			h.logger.Error("internal server error", zap.String("path", r.URL.Path), zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "internal server error",
			})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, items)
	}
}
