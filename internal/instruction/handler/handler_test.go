package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"vaultkeeper/internal/instruction"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/requestcontext"
	"vaultkeeper/pkg/testutil"
)

// staticGuard treats a fixed vault as active.
type staticGuard struct {
	vaultID id.VaultID
	active  bool
}

func (g *staticGuard) IsActive(_ context.Context, _ id.AccountID, vaultID id.VaultID) (bool, error) {
	return g.active && vaultID == g.vaultID, nil
}

type InstructionHandlerSuite struct {
	suite.Suite
	router    chi.Router
	guard     *staticGuard
	accountID id.AccountID
	vaultID   id.VaultID
}

func TestInstructionHandlerSuite(t *testing.T) {
	suite.Run(t, new(InstructionHandlerSuite))
}

func (s *InstructionHandlerSuite) SetupTest() {
	s.accountID = id.NewAccountID()
	s.vaultID = id.NewVaultID()
	s.guard = &staticGuard{vaultID: s.vaultID, active: true}
	service := instruction.NewService(instruction.NewInMemoryStore(), s.guard)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(r.Context(), s.accountID.String())))
		})
	})
	New(service, slog.Default()).Register(s.router)
}

func (s *InstructionHandlerSuite) body() map[string]any {
	return map[string]any{
		"vault_id":     s.vaultID.String(),
		"action_type":  "send_message",
		"title":        "farewell letter",
		"target_email": "heir@example.com",
		"message":      "goodbye",
		"delay_days":   7,
	}
}

func (s *InstructionHandlerSuite) TestHandleCreate() {
	s.Run("creates an instruction", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/legacy-instructions", s.body())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[InstructionResponse](s.T(), rr)
		s.Equal("send_message", resp.Action)
		s.Equal(7, resp.DelayDays)
		s.False(resp.IsExecuted)
	})

	s.Run("unknown action type fails validation", func() {
		body := s.body()
		body["action_type"] = "self_destruct"

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/legacy-instructions", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeValidation))
	})

	s.Run("missing title fails validation", func() {
		body := s.body()
		body["title"] = ""

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/legacy-instructions", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("inactive vault conflicts", func() {
		s.guard.active = false
		defer func() { s.guard.active = true }()

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/legacy-instructions", s.body())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeConflict))
	})
}

func (s *InstructionHandlerSuite) TestHandleDelete() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/legacy-instructions", s.body())
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[InstructionResponse](s.T(), rr)

	s.Run("deletes an unexecuted instruction", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/legacy-instructions/"+created.ID, nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("second delete is not found", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/legacy-instructions/"+created.ID, nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotFound))
	})
}
