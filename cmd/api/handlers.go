package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vitrina/auth"
	"vitrina/favorite"
	"vitrina/message"
	"vitrina/profile"
	"vitrina/review"
)

type listingResponse struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"ownerId"`
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	City        string   `json:"city"`
	Verified    bool     `json:"verified"`
	Elite       bool     `json:"elite"`
	Price       float64  `json:"price"`
	Ethnicity   string   `json:"ethnicity,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	Lat         float64  `json:"lat,omitempty"`
	Lng         float64  `json:"lng,omitempty"`
	Photos      []string `json:"photos"`
	Description string   `json:"description,omitempty"`
	Views       int      `json:"views"`
}

func toListingResponse(l profile.Listing) listingResponse {
	photos := l.Photos
	if photos == nil {
		photos = []string{}
	}
	return listingResponse{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Name:        l.Name,
		Age:         l.Age,
		City:        l.City,
		Verified:    l.Verified,
		Elite:       l.Elite,
		Price:       l.Price,
		Ethnicity:   l.Ethnicity,
		Nationality: l.Nationality,
		Lat:         l.Lat,
		Lng:         l.Lng,
		Photos:      photos,
		Description: l.Description,
		Views:       l.Views,
	}
}

// Catalog handlers.

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := profile.ListFilter{
		City:   q.Get("city"),
		Search: q.Get("search"),
	}
	if v := q.Get("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			filter.Verified = &b
		}
	}
	if v := q.Get("elite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			filter.Elite = &b
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	listings, err := s.profileService.List(r.Context(), filter)
	if err != nil {
		s.serverError(w, "list profiles", err)
		return
	}

	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"listings": out})
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	listing, err := s.profileService.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Perfil no encontrado")
			return
		}
		s.serverError(w, "get profile", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"listing": toListingResponse(listing)})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	if role := roleFrom(r.Context()); role != auth.RoleProvider && role != auth.RoleAdmin {
		writeError(w, http.StatusForbidden, "Solo los anunciantes pueden publicar")
		return
	}

	var params profile.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	params.OwnerID = userIDFrom(r.Context())

	listing, err := s.profileService.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, profile.ErrUnderage) {
			writeError(w, http.StatusBadRequest, "La edad mínima es 18 años")
			return
		}
		s.serverError(w, "create profile", err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"listing": toListingResponse(listing)})
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var params profile.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	listing, err := s.profileService.Update(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), params)
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrNotFound):
			writeError(w, http.StatusNotFound, "Perfil no encontrado")
		case errors.Is(err, profile.ErrForbidden):
			writeError(w, http.StatusForbidden, "No puedes editar este perfil")
		case errors.Is(err, profile.ErrUnderage):
			writeError(w, http.StatusBadRequest, "La edad mínima es 18 años")
		default:
			s.serverError(w, "update listing", err)
		}
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"listing": toListingResponse(listing)})
}

func (s *Server) handleListingView(w http.ResponseWriter, r *http.Request) {
	if err := s.profileService.IncrementViews(r.Context(), r.PathValue("id")); err != nil {
		s.serverError(w, "increment views", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// Favorite handlers.

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.favoriteService.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.serverError(w, "list favorites", err)
		return
	}

	ids := make([]string, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.ListingID)
	}
	writeSuccess(w, http.StatusOK, map[string]any{"listingIds": ids})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.favoriteService.Add(r.Context(), userIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, favorite.ErrListingMissing) {
			writeError(w, http.StatusNotFound, "Perfil no encontrado")
			return
		}
		s.serverError(w, "add favorite", err)
		return
	}
	writeSuccess(w, http.StatusCreated, nil)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.favoriteService.Remove(r.Context(), userIDFrom(r.Context()), r.PathValue("id")); err != nil {
		s.serverError(w, "remove favorite", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// Review handlers.

type reviewResponse struct {
	ID         string `json:"id"`
	ListingID  string `json:"listingId"`
	AuthorID   string `json:"authorId"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
	Helpful    int    `json:"helpful"`
	NotHelpful int    `json:"notHelpful"`
	CreatedAt  string `json:"createdAt"`
}

func toReviewResponse(rv review.Review) reviewResponse {
	return reviewResponse{
		ID:         rv.ID,
		ListingID:  rv.ListingID,
		AuthorID:   rv.AuthorID,
		Rating:     rv.Rating,
		Text:       rv.Text,
		Helpful:    rv.Helpful,
		NotHelpful: rv.NotHelpful,
		CreatedAt:  rv.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	reviews, summary, err := s.reviewService.ListForListing(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serverError(w, "list reviews", err)
		return
	}

	out := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResponse(rv))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"reviews": out,
		"count":   summary.Count,
		"average": summary.Average,
	})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int    `json:"rating"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	rv, err := s.reviewService.Create(r.Context(), r.PathValue("id"), userIDFrom(r.Context()), req.Rating, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrBadRating):
			writeError(w, http.StatusBadRequest, "La calificación debe estar entre 1 y 5")
		case errors.Is(err, review.ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "Ya has dejado una reseña")
		default:
			s.serverError(w, "create review", err)
		}
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"review": toReviewResponse(rv)})
}

func (s *Server) handleReviewHelpful(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Helpful bool `json:"helpful"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	rv, err := s.reviewService.MarkHelpful(r.Context(), r.PathValue("id"), req.Helpful)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Reseña no encontrada")
			return
		}
		s.serverError(w, "mark helpful", err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"review": toReviewResponse(rv)})
}

// Message handlers.

type messageResponse struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"createdAt"`
}

func toMessageResponse(m message.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Text:        m.Text,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.messageService.Conversations(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.serverError(w, "list conversations", err)
		return
	}

	type conversationResponse struct {
		PartnerID string `json:"partnerId"`
		LastText  string `json:"lastText"`
		Unread    int    `json:"unread"`
	}
	out := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, conversationResponse{
			PartnerID: c.PartnerID,
			LastText:  c.LastMessage.Text,
			Unread:    c.Unread,
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"conversations": out})
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	messages, err := s.messageService.Thread(r.Context(), userIDFrom(r.Context()), r.PathValue("userId"))
	if err != nil {
		s.serverError(w, "load thread", err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string `json:"recipientId"`
		Text        string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}

	m, err := s.messageService.Send(r.Context(), userIDFrom(r.Context()), req.RecipientID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "El mensaje no puede estar vacío")
		case errors.Is(err, message.ErrRecipientMissing):
			writeError(w, http.StatusNotFound, "Usuario no encontrado")
		default:
			s.serverError(w, "send message", err)
		}
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"message": toMessageResponse(m)})
}
