package controllers

import (
	"net/http"

	"github.com/supawave/supawave-backend/api/middleware"
	"github.com/supawave/supawave-backend/pkg/auth"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
)

func requireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing auth context")
	}
	return actor, nil
}
