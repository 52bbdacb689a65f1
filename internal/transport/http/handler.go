package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"cricket-trivia-service/internal/app"
	"cricket-trivia-service/internal/domain"
	"cricket-trivia-service/internal/ranking"
)

// Handler exposes the quiz use cases as JSON endpoints plus a websocket
// leaderboard feed. Every storage round trip runs under the request timeout;
// expiry surfaces as a storage failure (500).
type Handler struct {
	service  *app.TriviaService
	timeout  time.Duration
	upgrader websocket.Upgrader
}

func NewHandler(service *app.TriviaService, timeout time.Duration) *Handler {
	return &Handler{
		service: service,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quiz/categories", h.categories)
	mux.HandleFunc("GET /api/quiz/questions", h.questionsByCategory)
	mux.HandleFunc("GET /api/quiz/questions/{id}", h.questionByID)
	mux.HandleFunc("POST /api/quiz/submit", h.submit)
	mux.HandleFunc("GET /api/quiz/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /api/quiz/top-users", h.topUsers)
	mux.HandleFunc("GET /api/quiz/user-performance", h.userPerformance)
	mux.HandleFunc("GET /api/quiz/score", h.userSummary)
	mux.HandleFunc("GET /ws/leaderboard", h.leaderboardFeed)
}

type submitRequest struct {
	Name     string                    `json:"name"`
	Category string                    `json:"category"`
	Answers  []domain.AnswerSubmission `json:"answers"`
}

type submitResponse struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}

type topUserEntry struct {
	Rank  int    `json:"rank"`
	Badge string `json:"badge,omitempty"`
	domain.UserAggregate
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r)
	defer cancel()

	categories, err := h.service.Categories(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) questionsByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r)
	defer cancel()

	questions, err := h.service.QuestionsByCategory(ctx, r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) questionByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, domain.ErrInvalidInput)
		return
	}

	ctx, cancel := h.requestCtx(r)
	defer cancel()

	question, err := h.service.QuestionByID(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidInput)
		return
	}

	ctx, cancel := h.requestCtx(r)
	defer cancel()

	score, err := h.service.Submit(ctx, req.Name, req.Category, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Message: "Score stored successfully.", Score: score})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r)
	defer cancel()

	rows, err := h.service.Leaderboard(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) topUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r)
	defer cancel()

	aggregates, err := h.service.TopUsers(ctx, r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	scores := make([]float64, len(aggregates))
	for i, aggregate := range aggregates {
		scores[i] = aggregate.AvgScore
	}
	ranks := ranking.Assign(scores)

	entries := make([]topUserEntry, len(aggregates))
	for i, aggregate := range aggregates {
		entries[i] = topUserEntry{
			Rank:          ranks[i],
			Badge:         ranking.Medal(ranks[i]),
			UserAggregate: aggregate,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"topUsers": entries})
}

func (h *Handler) userPerformance(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	category := r.URL.Query().Get("category")

	ctx, cancel := h.requestCtx(r)
	defer cancel()

	// Name takes precedence when both filters are supplied.
	switch {
	case name != "":
		performance, err := h.service.UserPerformance(ctx, name)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": name, "performance": performance})
	case category != "":
		topUsers, err := h.service.CategoryPerformance(ctx, category)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category, "topUsers": topUsers})
	default:
		h.writeError(w, domain.ErrInvalidInput)
	}
}

func (h *Handler) userSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestCtx(r)
	defer cancel()

	summary, err := h.service.UserSummary(ctx, r.URL.Query().Get("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type feedMessage struct {
	Type    string          `json:"type"`
	Payload []app.RankedRow `json:"payload"`
}

// leaderboardFeed pushes the ranked top scores after every accepted
// submission until the client disconnects.
func (h *Handler) leaderboardFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(r.Context())
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rows, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "leaderboard", Payload: rows}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) requestCtx(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNoData):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no matching data found"})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
