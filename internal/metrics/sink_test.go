package metrics

import "testing"

func gaugeValue(t *testing.T, s *Sink, name string) float64 {
	t.Helper()
	families, err := s.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

func counterValue(t *testing.T, s *Sink, name string) float64 {
	t.Helper()
	families, err := s.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

func TestSetEntityCountsUpdatesGauges(t *testing.T) {
	s := New("sozuctl_test_entities")
	s.SetEntityCounts(2, 3, 4, 1, 1)

	if v := gaugeValue(t, s, "sozuctl_test_entities_clusters"); v != 2 {
		t.Fatalf("clusters gauge = %v, want 2", v)
	}
	if v := gaugeValue(t, s, "sozuctl_test_entities_backends"); v != 4 {
		t.Fatalf("backends gauge = %v, want 4", v)
	}
}

func TestSetSubscribersAccumulatesDropsAsDelta(t *testing.T) {
	s := New("sozuctl_test_subs")
	s.SetSubscribers(3, 1)
	s.SetSubscribers(2, 1)
	s.SetSubscribers(1, 4)

	if v := counterValue(t, s, "sozuctl_test_subs_event_subscriber_drops_total"); v != 4 {
		t.Fatalf("drops total = %v, want 4 (1 + 0 + 3)", v)
	}
}

func TestConfigureDisablesRecording(t *testing.T) {
	s := New("sozuctl_test_configure")
	s.RecordCluster("web")
	snap := s.Snapshot(0)
	if snap.PerClusterRequests["web"] != 1 {
		t.Fatalf("expected one recorded request for web, got %d", snap.PerClusterRequests["web"])
	}

	s.Configure(false, nil)
	s.RecordCluster("web")
	snap = s.Snapshot(0)
	if snap.PerClusterRequests["web"] != 1 {
		t.Fatalf("RecordCluster after Configure(false,...) should be a no-op, got %d", snap.PerClusterRequests["web"])
	}
}

func TestConfigureTagScoping(t *testing.T) {
	s := New("sozuctl_test_tagscope")
	s.Configure(true, []string{"web"})
	s.RecordCluster("web")
	s.RecordCluster("api")

	snap := s.Snapshot(0)
	if snap.PerClusterRequests["web"] != 1 {
		t.Fatalf("expected web recorded, got %d", snap.PerClusterRequests["web"])
	}
	if _, ok := snap.PerClusterRequests["api"]; ok {
		t.Fatal("api should not be recorded when tag-scoped to web only")
	}
}

