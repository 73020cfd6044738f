package metrics

import (
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIsDeepCopy(t *testing.T) {
	r := NewRegistry()
	k := Key{ClientID: 1, Method: "email", Industry: "saas"}
	r.IncDelivered(k)

	snap := r.Snapshot()
	assert.Equal(t, uint64(1), snap[k].Delivered)

	r.IncDelivered(k)
	assert.Equal(t, uint64(1), snap[k].Delivered, "snapshot must not see later increments")
	assert.Equal(t, uint64(2), r.Snapshot()[k].Delivered)
}

func TestSnapshotMergesFamiliesPerSeries(t *testing.T) {
	r := NewRegistry()
	k := Key{ClientID: 3, Method: "email", Industry: "saas"}
	r.IncDelivered(k)
	r.IncSkippedCap(k)
	r.IncSkippedCap(k)
	r.IncTrialUsed(k)

	snap := r.Snapshot()
	assert.Equal(t, Counts{Delivered: 1, SkippedCap: 2, TrialUsed: 1}, snap[k])
}

func TestConcurrentIncrements(t *testing.T) {
	r := NewRegistry()
	k := Key{ClientID: 7, Method: "whatsapp", Industry: "fitness"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.IncDelivered(k)
			r.IncSkippedCap(k)
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, uint64(50), snap[k].Delivered)
	assert.Equal(t, uint64(50), snap[k].SkippedCap)
}

func TestHandlerExposition(t *testing.T) {
	r := NewRegistry()
	r.IncDelivered(Key{ClientID: 2, Method: "email", Industry: "saas"})
	r.IncTrialUsed(Key{ClientID: 1, Method: "whatsapp", Industry: "restaurants"})

	rec := httptest.NewRecorder()
	r.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain; version=0.0.4")

	body := rec.Body.String()
	assert.Contains(t, body, "# TYPE leadgen_delivered_total counter")
	assert.Contains(t, body, `leadgen_delivered_total{client_id="2",industry="saas",method="email"} 1`)
	assert.Contains(t, body, `leadgen_trial_used_total{client_id="1",industry="restaurants",method="whatsapp"} 1`)
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	k := Key{ClientID: 1, Method: "email", Industry: "saas"}
	a.IncDelivered(k)

	assert.Empty(t, b.Snapshot())
}
