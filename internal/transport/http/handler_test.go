package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cricket-trivia-service/internal/app"
	"cricket-trivia-service/internal/domain"
	"cricket-trivia-service/internal/infra/memory"
)

func newTestMux(store *memory.Store) *http.ServeMux {
	service := app.NewTriviaService(store, store, memory.NewAnswerKeyCache(store, 5*time.Minute))
	handler := NewHandler(service, 5*time.Second)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func testStore() *memory.Store {
	return memory.NewStore([]domain.Question{
		{ID: 1, Text: "Which country hosted the 1987 World Cup?", Category: "History",
			CorrectAnswer: "India", Options: []string{"India", "England", "Australia", "Pakistan"}},
		{ID: 2, Text: "Most ODI centuries?", Category: "Players",
			CorrectAnswer: "Sachin Tendulkar", Options: []string{"Kohli", "Ponting", "Kallis", "Sachin Tendulkar"}},
	})
}

func TestSubmitEndToEnd(t *testing.T) {
	store := testStore()
	mux := newTestMux(store)

	body := `{"name":"Raj","category":"History","answers":[{"question_id":1,"selected_answer":"India"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quiz/submit", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
		Score   int    `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Score != 100 {
		t.Fatalf("expected score 100, got %+v", resp)
	}

	user, err := store.FindUserByName(context.Background(), "Raj")
	if err != nil {
		t.Fatalf("expected user row: %v", err)
	}
	summary, err := store.UserSummary(context.Background(), user.Name)
	if err != nil || summary.Attempts != 1 || summary.AvgScore != 100 {
		t.Fatalf("expected one persisted score record at 100, got %+v (%v)", summary, err)
	}
}

func TestSubmitStatusTaxonomy(t *testing.T) {
	mux := newTestMux(testStore())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing name", `{"category":"History","answers":[{"question_id":1,"selected_answer":"India"}]}`, http.StatusBadRequest},
		{"empty answers", `{"name":"Raj","category":"History","answers":[]}`, http.StatusBadRequest},
		{"unknown question", `{"name":"Raj","category":"History","answers":[{"question_id":99,"selected_answer":"India"}]}`, http.StatusBadRequest},
		{"unknown category", `{"name":"Raj","category":"Astronomy","answers":[{"question_id":1,"selected_answer":"India"}]}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/quiz/submit", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestLeaderboardEmptyIs404(t *testing.T) {
	mux := newTestMux(testStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/leaderboard", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty leaderboard, got %d", rec.Code)
	}
}

func TestLeaderboardIncludesRanks(t *testing.T) {
	store := testStore()
	ctx := context.Background()
	for i, seed := range []struct {
		name  string
		score int
	}{{"A", 95}, {"B", 90}, {"C", 90}, {"D", 80}} {
		user, err := store.CreateUser(ctx, seed.name)
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
		store.InsertScore(ctx, user.ID, "History", seed.score)
	}
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/leaderboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rows []struct {
		Rank  int    `json:"rank"`
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantRanks := []int{1, 2, 2, 4}
	for i, want := range wantRanks {
		if rows[i].Rank != want {
			t.Fatalf("rank[%d] = %d, want %d (%+v)", i, rows[i].Rank, want, rows)
		}
	}
}

func TestTopUsersBadges(t *testing.T) {
	store := testStore()
	ctx := context.Background()
	for _, seed := range []struct {
		name  string
		score int
	}{{"A", 90}, {"B", 70}} {
		user, _ := store.CreateUser(ctx, seed.name)
		store.InsertScore(ctx, user.ID, "History", seed.score)
	}
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/top-users?sort=bogus", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		TopUsers []struct {
			Rank     int     `json:"rank"`
			Badge    string  `json:"badge"`
			Name     string  `json:"name"`
			AvgScore float64 `json:"avgScore"`
		} `json:"topUsers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.TopUsers) != 2 {
		t.Fatalf("expected 2 users, got %+v", resp)
	}
	if resp.TopUsers[0].Name != "A" || resp.TopUsers[0].Badge != "🥇" {
		t.Fatalf("expected gold badge for the leader, got %+v", resp.TopUsers[0])
	}
}

func TestUserPerformanceParamHandling(t *testing.T) {
	store := testStore()
	ctx := context.Background()
	user, _ := store.CreateUser(ctx, "Raj")
	store.InsertScore(ctx, user.ID, "History", 80)
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/user-performance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filters, got %d", rec.Code)
	}

	// Name takes precedence when both filters are supplied.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/user-performance?name=Raj&category=History", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["user"]; !ok {
		t.Fatalf("expected the user branch, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/user-performance?name=Nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestQuestionEndpoints(t *testing.T) {
	mux := newTestMux(testStore())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/questions", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without category, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/questions?category=History", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/questions/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/questions/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}

// failingStore simulates the backing store being unreachable.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) FindUserByName(context.Context, string) (domain.User, error) {
	return domain.User{}, errDown
}
func (failingStore) CreateUser(context.Context, string) (domain.User, error) {
	return domain.User{}, errDown
}
func (failingStore) InsertScore(context.Context, int64, string, int) (int64, error) {
	return 0, errDown
}
func (failingStore) TopScores(context.Context) ([]domain.LeaderboardRow, error) {
	return nil, errDown
}
func (failingStore) TopUsersByAverage(context.Context, domain.TopUsersSort) ([]domain.UserAggregate, error) {
	return nil, errDown
}
func (failingStore) BestScoresByUser(context.Context, string) ([]domain.CategoryBest, error) {
	return nil, errDown
}
func (failingStore) BestScoresByCategory(context.Context, string) ([]domain.UserBest, error) {
	return nil, errDown
}
func (failingStore) UserSummary(context.Context, string) (domain.UserSummary, error) {
	return domain.UserSummary{}, errDown
}

func TestStorageFailureIs500(t *testing.T) {
	questions := testStore()
	service := app.NewTriviaService(failingStore{}, questions, memory.NewAnswerKeyCache(questions, time.Minute))
	handler := NewHandler(service, time.Second)
	mux := http.NewServeMux()
	handler.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/leaderboard", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when storage is down, got %d", rec.Code)
	}

	body := `{"name":"Raj","category":"History","answers":[{"question_id":1,"selected_answer":"India"}]}`
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/quiz/submit", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when storage is down, got %d", rec.Code)
	}
}

func TestLeaderboardFeedPushesAfterSubmit(t *testing.T) {
	store := testStore()
	mux := newTestMux(store)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to register its subscription.
	time.Sleep(50 * time.Millisecond)

	body := `{"name":"Raj","category":"History","answers":[{"question_id":1,"selected_answer":"India"}]}`
	resp, err := http.Post(server.URL+"/api/quiz/submit", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string `json:"type"`
		Payload []struct {
			Rank  int    `json:"rank"`
			Name  string `json:"name"`
			Score int    `json:"score"`
		} `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if msg.Type != "leaderboard" || len(msg.Payload) != 1 || msg.Payload[0].Score != 100 {
		t.Fatalf("unexpected feed message %+v", msg)
	}
}
