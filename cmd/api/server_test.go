package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"vitrina/auth"
	"vitrina/favorite"
	"vitrina/message"
	"vitrina/profile"
	"vitrina/review"
)

type stubAuthService struct {
	loginResult    auth.LoginResult
	loginErr       error
	registerResult auth.LoginResult
	registerErr    error
	user           *auth.User
	userErr        error
	verifyClaims   auth.Claims
	verifyErr      error
	logoutErr      error
}

func (s *stubAuthService) Register(_ context.Context, _ auth.RegisterRequest) (auth.LoginResult, error) {
	return s.registerResult, s.registerErr
}

func (s *stubAuthService) Login(_ context.Context, _ auth.LoginRequest) (auth.LoginResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) Logout(_ context.Context, _ auth.Claims) error {
	return s.logoutErr
}

func (s *stubAuthService) GetUserByID(_ context.Context, _ string) (*auth.User, error) {
	return s.user, s.userErr
}

func (s *stubAuthService) UpdateProfile(_ context.Context, _ string, _ auth.ProfilePatch) (*auth.User, error) {
	return s.user, s.userErr
}

func (s *stubAuthService) VerifyToken(_ context.Context, _ string) (auth.Claims, error) {
	return s.verifyClaims, s.verifyErr
}

type stubProfileRepo struct {
	listing  profile.Listing
	listings []profile.Listing
	err      error
}

func (s *stubProfileRepo) GetByID(_ context.Context, _ string) (profile.Listing, error) {
	return s.listing, s.err
}

func (s *stubProfileRepo) List(_ context.Context, _ profile.ListFilter) ([]profile.Listing, error) {
	return s.listings, s.err
}

func (s *stubProfileRepo) Create(_ context.Context, params profile.CreateParams) (profile.Listing, error) {
	if s.err != nil {
		return profile.Listing{}, s.err
	}
	return profile.Listing{ID: "new", OwnerID: params.OwnerID, Name: params.Name, Age: params.Age, City: params.City, Price: params.Price}, nil
}

func (s *stubProfileRepo) Update(_ context.Context, _ string, _ profile.UpdateParams) (profile.Listing, error) {
	return s.listing, s.err
}

func (s *stubProfileRepo) IncrementViews(_ context.Context, _ string) error {
	return s.err
}

type stubFavoriteService struct {
	favorites []favorite.Favorite
	err       error
}

func (s *stubFavoriteService) List(_ context.Context, _ string) ([]favorite.Favorite, error) {
	return s.favorites, s.err
}

func (s *stubFavoriteService) Add(_ context.Context, _, _ string) error {
	return s.err
}

func (s *stubFavoriteService) Remove(_ context.Context, _, _ string) error {
	return s.err
}

type stubReviewService struct {
	reviews   []review.Review
	summary   review.Summary
	created   review.Review
	createErr error
}

func (s *stubReviewService) ListForListing(_ context.Context, _ string) ([]review.Review, review.Summary, error) {
	return s.reviews, s.summary, nil
}

func (s *stubReviewService) Create(_ context.Context, _, _ string, _ int, _ string) (review.Review, error) {
	return s.created, s.createErr
}

func (s *stubReviewService) MarkHelpful(_ context.Context, _ string, _ bool) (review.Review, error) {
	return s.created, s.createErr
}

type stubMessageService struct {
	sent          message.Message
	sendErr       error
	thread        []message.Message
	conversations []message.Conversation
}

func (s *stubMessageService) Send(_ context.Context, _, _, _ string) (message.Message, error) {
	return s.sent, s.sendErr
}

func (s *stubMessageService) Thread(_ context.Context, _, _ string) ([]message.Message, error) {
	return s.thread, nil
}

func (s *stubMessageService) Conversations(_ context.Context, _ string) ([]message.Conversation, error) {
	return s.conversations, nil
}

func newTestServer() *Server {
	return &Server{log: zap.NewNop()}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func authedRequest(req *http.Request, userID string, role auth.Role) *http.Request {
	ctx := context.WithValue(req.Context(), ctxKeyUserID, userID)
	ctx = context.WithValue(ctx, ctxKeyRole, role)
	ctx = context.WithValue(ctx, ctxKeyClaims, auth.Claims{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func TestHandleLogin_Success(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{
		loginResult: auth.LoginResult{
			Token: "tok-1",
			User:  auth.User{ID: "u1", Email: "ana@example.com", Role: auth.RoleClient, Name: "Ana", Phone: "600", City: "Madrid"},
		},
	}

	body := strings.NewReader(`{"email":"ana@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}

	var data struct {
		User  userResponse `json:"user"`
		Token string       `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Token != "tok-1" || data.User.ID != "u1" {
		t.Fatalf("unexpected payload: %+v", data)
	}
	if !data.User.ProfileComplete {
		t.Fatalf("expected profileComplete for filled user, got %+v", data.User)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{loginErr: auth.ErrInvalidCredentials}

	body := strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Message != "Credenciales inválidas" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{registerErr: auth.ErrDuplicateEmail}

	body := strings.NewReader(`{"email":"ana@example.com","password":"secret1","name":"Ana"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()

	server.handleRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{}

	called := false
	handler := server.requireAuth(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatal("handler must not run without a valid token")
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{
		verifyClaims: auth.Claims{UserID: "u1", Role: auth.RoleProvider},
	}

	var gotID string
	var gotRole auth.Role
	handler := server.requireAuth(func(_ http.ResponseWriter, r *http.Request) {
		gotID = userIDFrom(r.Context())
		gotRole = roleFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if gotID != "u1" || gotRole != auth.RoleProvider {
		t.Fatalf("context not populated: id=%q role=%q", gotID, gotRole)
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	server := newTestServer()
	server.authService = &stubAuthService{verifyErr: auth.ErrTokenInvalid}

	handler := server.requireAuth(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleListings_Filters(t *testing.T) {
	now := time.Now().UTC()
	server := newTestServer()
	server.profileService = profile.NewService(&stubProfileRepo{
		listings: []profile.Listing{
			{ID: "l1", OwnerID: "p1", Name: "Valeria", Age: 25, City: "Madrid", Verified: true, CreatedAt: now},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profiles?city=Madrid&verified=true", nil)
	rec := httptest.NewRecorder()

	server.handleListings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	var data struct {
		Listings []listingResponse `json:"listings"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Listings) != 1 || data.Listings[0].ID != "l1" {
		t.Fatalf("unexpected payload: %+v", data)
	}
	if data.Listings[0].Photos == nil {
		t.Fatal("photos must encode as an array, not null")
	}
}

func TestHandleListing_NotFound(t *testing.T) {
	server := newTestServer()
	server.profileService = profile.NewService(&stubProfileRepo{err: profile.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()

	server.handleListing(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCreateListing_ForbidClientRole(t *testing.T) {
	server := newTestServer()

	body := strings.NewReader(`{"name":"Valeria","age":25,"city":"Madrid","price":150}`)
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", body)
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleCreateListing(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleCreateListing_Underage(t *testing.T) {
	server := newTestServer()
	server.profileService = profile.NewService(&stubProfileRepo{})

	body := strings.NewReader(`{"name":"Valeria","age":17,"city":"Madrid","price":150}`)
	req := httptest.NewRequest(http.MethodPost, "/api/profiles", body)
	req = authedRequest(req, "p1", auth.RoleProvider)
	rec := httptest.NewRecorder()

	server.handleCreateListing(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpdateListing_NotOwner(t *testing.T) {
	server := newTestServer()
	server.profileService = profile.NewService(&stubProfileRepo{
		listing: profile.Listing{ID: "l1", OwnerID: "someone-else", Age: 25},
	})

	body := strings.NewReader(`{"city":"Barcelona"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/l1", body)
	req.SetPathValue("id", "l1")
	req = authedRequest(req, "p1", auth.RoleProvider)
	rec := httptest.NewRecorder()

	server.handleUpdateListing(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleFavorites_ReturnsIDs(t *testing.T) {
	server := newTestServer()
	server.favoriteService = &stubFavoriteService{
		favorites: []favorite.Favorite{
			{UserID: "u1", ListingID: "l2"},
			{UserID: "u1", ListingID: "l1"},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleFavorites(rec, req)

	env := decodeEnvelope(t, rec)
	var data struct {
		ListingIDs []string `json:"listingIds"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.ListingIDs) != 2 || data.ListingIDs[0] != "l2" {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestHandleAddFavorite_MissingListing(t *testing.T) {
	server := newTestServer()
	server.favoriteService = &stubFavoriteService{err: favorite.ErrListingMissing}

	req := httptest.NewRequest(http.MethodPost, "/api/favorites/ghost", nil)
	req.SetPathValue("id", "ghost")
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleAddFavorite(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCreateReview_Conflict(t *testing.T) {
	server := newTestServer()
	server.reviewService = &stubReviewService{createErr: review.ErrAlreadyReviewed}

	body := strings.NewReader(`{"rating":5,"text":"Excelente"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/reviews/l1", body)
	req.SetPathValue("id", "l1")
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleCreateReview(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleReviews_IncludesSummary(t *testing.T) {
	server := newTestServer()
	server.reviewService = &stubReviewService{
		reviews: []review.Review{{ID: "r1", ListingID: "l1", Rating: 4}},
		summary: review.Summary{Count: 1, Average: 4},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reviews/l1", nil)
	req.SetPathValue("id", "l1")
	rec := httptest.NewRecorder()

	server.handleReviews(rec, req)

	env := decodeEnvelope(t, rec)
	var data struct {
		Reviews []reviewResponse `json:"reviews"`
		Count   int              `json:"count"`
		Average float64          `json:"average"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 1 || data.Average != 4 || len(data.Reviews) != 1 {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestHandleSendMessage_EmptyText(t *testing.T) {
	server := newTestServer()
	server.messageService = &stubMessageService{sendErr: message.ErrEmptyText}

	body := strings.NewReader(`{"recipientId":"u2","text":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleSendMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleConversations_WireShape(t *testing.T) {
	now := time.Now().UTC()
	server := newTestServer()
	server.messageService = &stubMessageService{
		conversations: []message.Conversation{
			{PartnerID: "u2", LastMessage: message.Message{Text: "Hola", CreatedAt: now}, Unread: 3},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/messages/conversations", nil)
	req = authedRequest(req, "u1", auth.RoleClient)
	rec := httptest.NewRecorder()

	server.handleConversations(rec, req)

	env := decodeEnvelope(t, rec)
	var data struct {
		Conversations []struct {
			PartnerID string `json:"partnerId"`
			LastText  string `json:"lastText"`
			Unread    int    `json:"unread"`
		} `json:"conversations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Conversations) != 1 {
		t.Fatalf("unexpected payload: %+v", data)
	}
	c := data.Conversations[0]
	if c.PartnerID != "u2" || c.LastText != "Hola" || c.Unread != 3 {
		t.Fatalf("unexpected conversation: %+v", c)
	}
}

func TestHandleUnexpectedError_EnvelopeShape(t *testing.T) {
	server := newTestServer()
	server.profileService = profile.NewService(&stubProfileRepo{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	rec := httptest.NewRecorder()

	server.handleListings(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Message == "" {
		t.Fatalf("expected failure envelope with message, got %+v", env)
	}
}
