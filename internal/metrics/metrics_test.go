package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCollectorExposesObservedActions(t *testing.T) {
	c := NewCollector()
	c.ObserveAction("work", "ok", 5*time.Millisecond)
	c.ObserveAction("work", "denied", time.Millisecond)
	c.SetCachedAccounts(7)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`fabrik_actions_total{action="work",outcome="ok"} 1`,
		`fabrik_actions_total{action="work",outcome="denied"} 1`,
		`fabrik_actions_denied_total{action="work"} 1`,
		`fabrik_cached_accounts 7`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}
