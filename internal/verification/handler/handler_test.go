package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"vaultkeeper/internal/party"
	"vaultkeeper/internal/vault"
	"vaultkeeper/internal/verification"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
	"vaultkeeper/pkg/requestcontext"
	"vaultkeeper/pkg/testutil"
)

type VerificationHandlerSuite struct {
	suite.Suite
	router    chi.Router
	vaults    *vault.InMemoryStore
	vaultSvc  *vault.Service
	parties   *party.InMemoryStore
	ledger    *verification.InMemoryStore
	accountID id.AccountID
	vaultID   id.VaultID
	verifier  id.PartyID
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	logger := slog.Default()
	s.accountID = id.NewAccountID()

	s.vaults = vault.NewInMemoryStore()
	s.parties = party.NewInMemoryStore()
	s.ledger = verification.NewInMemoryStore()
	quorum := verification.NewQuorum(s.ledger)
	s.vaultSvc = vault.NewService(s.vaults, quorum, noopSink{})
	service := verification.NewService(s.ledger, s.parties, s.vaultSvc)

	ctx := testutil.AuthenticatedContext(s.accountID.String())
	v, err := s.vaultSvc.Create(ctx, s.accountID, "estate", "", 2)
	s.Require().NoError(err)
	s.vaultID = v.ID
	s.verifier = s.addVerifier("alex@example.com")

	s.router = chi.NewRouter()
	s.router.Use(s.authenticate)
	New(service, s.vaultSvc, logger).Register(s.router)
}

func (s *VerificationHandlerSuite) addVerifier(email string) id.PartyID {
	p := &party.Party{
		ID:        id.NewPartyID(),
		VaultID:   s.vaultID,
		AccountID: s.accountID,
		Name:      "Verifier",
		Email:     email,
		Role:      party.RoleVerifier,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.parties.Create(s.T().Context(), p))
	return p.ID
}

// authenticate stands in for the bearer-token middleware.
func (s *VerificationHandlerSuite) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithAccountID(r.Context(), s.accountID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type noopSink struct{}

func (noopSink) OnVaultUnlocked(_ context.Context, _ id.VaultID, _ time.Time) error { return nil }

func (s *VerificationHandlerSuite) submitBody(partyID id.PartyID) map[string]any {
	return map[string]any{
		"vault_id": s.vaultID.String(),
		"party_id": partyID.String(),
		"evidence": map[string]any{
			"type": "death_certificate",
			"url":  "https://registry.example/cert/123",
		},
	}
}

func (s *VerificationHandlerSuite) TestHandleSubmit() {
	s.Run("verifier submits a pending attestation", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", s.submitBody(s.verifier))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[VerificationResponse](s.T(), rr)
		s.Equal("pending", resp.Status)
		s.Equal(s.vaultID.String(), resp.VaultID)
	})

	s.Run("duplicate pending attestation conflicts", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", s.submitBody(s.verifier))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeDuplicatePending))
	})

	s.Run("non-verifier party is forbidden", func() {
		heir := &party.Party{
			ID: id.NewPartyID(), VaultID: s.vaultID, AccountID: s.accountID,
			Name: "Heir", Email: "heir@example.com", Role: party.RoleHeir, CreatedAt: time.Now(),
		}
		s.Require().NoError(s.parties.Create(s.T().Context(), heir))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", s.submitBody(heir.ID))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidParty))
	})

	s.Run("missing evidence type fails validation", func() {
		body := s.submitBody(s.verifier)
		body["evidence"] = map[string]any{"url": "https://registry.example"}

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeValidation))
	})
}

func (s *VerificationHandlerSuite) TestHandleReview() {
	submit := func(partyID id.PartyID) string {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", s.submitBody(partyID))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		return testutil.UnmarshalResponse[VerificationResponse](s.T(), rr).ID
	}

	s.Run("verified decision finalizes the record", func() {
		verificationID := submit(s.verifier)

		req := testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/death-verifications/"+verificationID+"/status?status=verified", nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[VerificationResponse](s.T(), rr)
		s.Equal("verified", resp.Status)
		s.Equal(s.accountID.String(), resp.ReviewedBy)
		s.NotNil(resp.DecidedAt)
	})

	s.Run("re-review is a conflict", func() {
		verificationID := submit(s.addVerifier("casey@example.com"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/death-verifications/"+verificationID+"/status?status=rejected", nil)
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)

		req = testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/death-verifications/"+verificationID+"/status?status=verified", nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeAlreadyFinalized))
	})

	s.Run("pending is not a reviewable status", func() {
		verificationID := submit(s.addVerifier("drew@example.com"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/death-verifications/"+verificationID+"/status?status=pending", nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidTransition))
	})

	s.Run("unknown verification is not found", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/death-verifications/"+id.NewVerificationID().String()+"/status?status=verified", nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotFound))
	})
}

func (s *VerificationHandlerSuite) TestHandleList() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/death-verifications", s.submitBody(s.verifier))
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)

	req = testutil.NewJSONRequest(s.T(), http.MethodGet, "/vaults/"+s.vaultID.String()+"/death-verifications", nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[[]VerificationResponse](s.T(), rr)
	s.Len(*resp, 1)

	s.Run("flat projection spans the caller's vaults", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/death-verifications", nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[[]VerificationResponse](s.T(), rr)
		s.Len(*resp, 1)
		s.Equal(s.vaultID.String(), (*resp)[0].VaultID)
	})
}
