package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staffeval/internal/domain/auth"
)

type memoryKeys struct {
	hashes    map[string]string
	responses map[string]json.RawMessage
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{hashes: map[string]string{}, responses: map[string]json.RawMessage{}}
}

func (m *memoryKeys) Check(_ context.Context, tenantID, userID, endpoint, key, hash string) (json.RawMessage, bool, error) {
	id := tenantID + "|" + userID + "|" + endpoint + "|" + key
	stored, ok := m.hashes[id]
	if !ok {
		return nil, false, nil
	}
	if stored != hash {
		return nil, false, ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *memoryKeys) Save(_ context.Context, tenantID, userID, endpoint, key, hash string, response json.RawMessage) error {
	id := tenantID + "|" + userID + "|" + endpoint + "|" + key
	m.hashes[id] = hash
	m.responses[id] = response
	return nil
}

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte("payload"))
	hash2 := RequestHash([]byte("payload"))
	hash3 := RequestHash([]byte("other"))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

func TestIdempotencyReplaysAndRejectsConflicts(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemoryKeys())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":{"n":1}}`))
	}))

	ctx := WithUser(context.Background(), auth.UserContext{TenantID: "t1", UserID: "u1"})
	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/e1/submit", strings.NewReader(body)).WithContext(ctx)
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{}`)
	if first.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected first call to run handler, got %d calls=%d", first.Code, calls)
	}

	replay := send(`{}`)
	if replay.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected replay without handler call, got %d calls=%d", replay.Code, calls)
	}
	if replay.Header().Get(idempotencyReplayed) != "true" {
		t.Fatal("expected replay header")
	}
	if !strings.Contains(replay.Body.String(), `"n":1`) {
		t.Fatalf("unexpected replay body %s", replay.Body.String())
	}

	conflict := send(`{"other":true}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflict.Code)
	}
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	calls := 0
	handler := Idempotency(newMemoryKeys())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := WithUser(context.Background(), auth.UserContext{TenantID: "t1", UserID: "u1"})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations/e1/submit", nil).WithContext(ctx)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both calls to reach the handler, got %d", calls)
	}
}
