package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(upstreamReqs.WithLabelValues("gateway", "m-test", "success"))
	ObserveUpstream("gateway", "m-test", "success", 120*time.Millisecond)
	after := testutil.ToFloat64(upstreamReqs.WithLabelValues("gateway", "m-test", "success"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestIncReconstructAndTokens(t *testing.T) {
	IncReconstruct("invalid_request")
	if got := testutil.ToFloat64(reconstructReqs.WithLabelValues("invalid_request")); got < 1 {
		t.Errorf("reconstruct counter = %v", got)
	}

	AddTokens("m-tokens", 10, 0)
	if got := testutil.ToFloat64(upstreamTokens.WithLabelValues("m-tokens", "in")); got != 10 {
		t.Errorf("tokens in = %v, want 10", got)
	}
	if got := testutil.CollectAndCount(upstreamTokens, "manualrebuild_upstream_tokens_total"); got != 1 {
		t.Errorf("series = %d, want 1 (zero out tokens must not create a series)", got)
	}
}
