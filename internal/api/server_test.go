package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fabrik/internal/config"
	"fabrik/internal/economy"
	"fabrik/internal/metrics"
	"fabrik/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eco := economy.NewService(storage.NewMemory(), logger, nil)
	catalog, err := economy.NewStore(eco, []economy.Item{
		{ID: "pickaxe", Name: "Pickaxe", Price: 120},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	srv := New(config.APIConfig{}, logger, eco, catalog, metrics.NewCollector())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	status, out := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if status != http.StatusOK || out["ok"] != true {
		t.Fatalf("healthz status=%d out=%v", status, out)
	}
}

func TestAccountLifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/accounts/u1/", nil)
	if status != http.StatusNotFound {
		t.Fatalf("fetch before ensure status=%d want=404", status)
	}

	status, out := doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/ensure", nil)
	if status != http.StatusOK {
		t.Fatalf("ensure status=%d out=%v", status, out)
	}
	if out["action_id"] == "" {
		t.Fatalf("ensure response lacks action id")
	}

	status, out = doJSON(t, http.MethodGet, ts.URL+"/v1/accounts/u1/", nil)
	if status != http.StatusOK {
		t.Fatalf("fetch status=%d", status)
	}
	acc := out["account"].(map[string]any)
	if acc["wallet"].(float64) != 0 || acc["bank"].(float64) != 0 {
		t.Fatalf("fresh account not zeroed: %v", acc)
	}

	status, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/accounts/u1/", nil)
	if status != http.StatusOK {
		t.Fatalf("delete status=%d", status)
	}
	status, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/accounts/u1/", nil)
	if status != http.StatusNotFound {
		t.Fatalf("fetch after delete status=%d want=404", status)
	}
}

func TestWorkThenDepositFlow(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/ensure", nil)

	status, out := doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/work", nil)
	if status != http.StatusOK {
		t.Fatalf("work status=%d out=%v", status, out)
	}
	amount := out["amount"].(float64)
	if amount < 50 || amount > 150 {
		t.Fatalf("work amount %v outside [50,150]", amount)
	}

	// Second work hits the cooldown but still returns 200 with a denial.
	status, out = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/work", nil)
	if status != http.StatusOK || out["err"] != "COOLDOWN" {
		t.Fatalf("cooldown status=%d out=%v", status, out)
	}

	status, out = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/deposit", map[string]any{"amount": int64(amount)})
	if status != http.StatusOK {
		t.Fatalf("deposit status=%d out=%v", status, out)
	}
	acc := out["account"].(map[string]any)
	if acc["bank"].(float64) != amount || acc["wallet"].(float64) != 0 {
		t.Fatalf("deposit not applied: %v", acc)
	}

	// Over-withdrawal is a 400.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/withdraw", map[string]any{"amount": int64(amount) + 1})
	if status != http.StatusBadRequest {
		t.Fatalf("over-withdraw status=%d want=400", status)
	}
}

func TestTransferEndpoint(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/alice/ensure", nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/bob/ensure", nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/alice/work", nil)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/transfers", map[string]any{
		"amount": 10, "from": "alice", "to": "bob",
	})
	if status != http.StatusOK {
		t.Fatalf("transfer status=%d", status)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/transfers", map[string]any{
		"amount": 10, "from": "alice", "to": "ghost",
	})
	if status != http.StatusNotFound {
		t.Fatalf("transfer to missing account status=%d want=404", status)
	}
}

func TestFabricEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// GET /fabric ensures the account and starts the payment clock.
	status, out := doJSON(t, http.MethodGet, ts.URL+"/v1/accounts/u1/fabric", nil)
	if status != http.StatusOK {
		t.Fatalf("fabric status=%d out=%v", status, out)
	}
	view := out["fabric"].(map[string]any)
	if view["level"].(float64) != 1 || view["collectable"] != true {
		t.Fatalf("fresh fabric view wrong: %v", view)
	}

	status, out = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/fabric/collect", nil)
	if status != http.StatusOK {
		t.Fatalf("collect status=%d", status)
	}
	view = out["fabric"].(map[string]any)
	if view["collectable"] != false {
		t.Fatalf("collect should start the cooldown: %v", view)
	}

	status, out = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/fabric/sell", map[string]any{"percentage": 50})
	if status != http.StatusOK {
		t.Fatalf("sell status=%d out=%v", status, out)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/fabric/sell", map[string]any{"percentage": 10})
	if status != http.StatusConflict {
		t.Fatalf("double sell status=%d want=409", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/fabric/sell", map[string]any{"percentage": 500})
	if status != http.StatusBadRequest {
		t.Fatalf("bad percentage status=%d want=400", status)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/a/ensure?guild=g", nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/b/ensure?guild=g", nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/a/work?guild=g", nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/a/deposit?guild=g", map[string]any{"amount": 50})

	status, out := doJSON(t, http.MethodGet, ts.URL+"/v1/leaderboard?guild=g", nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard status=%d", status)
	}
	rows := out["leaderboard"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	top := rows[0].(map[string]any)
	if top["user_id"] != "a" || top["pos"].(float64) != 1 {
		t.Fatalf("unexpected top row: %v", top)
	}

	// cached=1 with an empty cache falls back to the live ranking.
	status, out = doJSON(t, http.MethodGet, ts.URL+"/v1/leaderboard?guild=g&cached=1", nil)
	if status != http.StatusOK || out["cached"] != nil {
		t.Fatalf("empty cache should serve live: status=%d out=%v", status, out)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/leaderboard?limit=no", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d want=400", status)
	}
}

func TestStoreEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, out := doJSON(t, http.MethodGet, ts.URL+"/v1/store/items", nil)
	if status != http.StatusOK {
		t.Fatalf("items status=%d", status)
	}
	if items := out["items"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", items)
	}

	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/ensure", nil)
	status, out = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/store/buy", map[string]any{"item_id": "pickaxe"})
	if status != http.StatusOK {
		t.Fatalf("buy status=%d", status)
	}
	rcpt := out["receipt"].(map[string]any)
	if rcpt["err"] != "NOT_ENOUGH_MONEY" {
		t.Fatalf("broke purchase should be denied in the receipt: %v", rcpt)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/store/buy", map[string]any{"item_id": "nonsense"})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown item status=%d want=400", status)
	}
}

func TestActionIDHeaderIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/accounts/u1/ensure", nil)
	req.Header.Set("Action-Id", "pinned-id-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["action_id"] != "pinned-id-1" {
		t.Fatalf("action id not echoed: %v", out["action_id"])
	}
}

func TestDisallowUnknownFields(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/ensure", nil)
	status, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/accounts/u1/deposit", map[string]any{
		"amount": 1, "bogus": true,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("unknown body field status=%d want=400", status)
	}
}
