package discovery

import "testing"

func TestChannelMapQueries(t *testing.T) {
	m := NewChannelMap(8)

	m.Update(ChannelProfile{Index: 1, Role: RoleKick, Group: "drums",
		Fingerprint: Fingerprint{HasSignal: true}})
	m.Update(ChannelProfile{Index: 2, Role: RoleSnare, Group: "drums",
		Fingerprint: Fingerprint{HasSignal: true}, Muted: true})
	m.Update(ChannelProfile{Index: 3, Role: RoleLeadVocal, Group: "vocals",
		Fingerprint: Fingerprint{HasSignal: true}})
	m.Update(ChannelProfile{Index: 4, Role: RoleLeadVocal, Group: "vocals"})

	if got := len(m.ByRole(RoleLeadVocal)); got != 2 {
		t.Errorf("ByRole(LeadVocal) = %d entries, want 2", got)
	}
	if got := len(m.ByGroup("drums")); got != 2 {
		t.Errorf("ByGroup(drums) = %d entries, want 2", got)
	}

	// Active = has signal and not muted: channels 1 and 3.
	active := m.Active()
	if len(active) != 2 {
		t.Fatalf("Active() = %d entries, want 2", len(active))
	}
	for _, p := range active {
		if p.Index != 1 && p.Index != 3 {
			t.Errorf("unexpected active channel %d", p.Index)
		}
	}

	if got := m.Count(); got != 8 {
		t.Errorf("Count() = %d, want 8", got)
	}
	if got := len(m.All()); got != 8 {
		t.Errorf("len(All()) = %d, want 8", got)
	}
}

func TestChannelMapOutOfRange(t *testing.T) {
	m := NewChannelMap(4)

	m.Update(ChannelProfile{Index: 0, Role: RoleKick})
	m.Update(ChannelProfile{Index: 5, Role: RoleKick})

	if _, ok := m.Get(0); ok {
		t.Error("Get(0) ok, want false")
	}
	if _, ok := m.Get(5); ok {
		t.Error("Get(5) ok, want false")
	}
	for ch := 1; ch <= 4; ch++ {
		p, ok := m.Get(ch)
		if !ok {
			t.Fatalf("Get(%d) not ok", ch)
		}
		if p.Role != RoleUnknown {
			t.Errorf("ch%d role = %v after out-of-range updates, want Unknown", ch, p.Role)
		}
	}
}

func TestChannelMapResizePreservesProfiles(t *testing.T) {
	m := NewChannelMap(2)
	m.Update(ChannelProfile{Index: 1, Role: RoleKick, Group: "drums"})

	m.Resize(4)
	if p, _ := m.Get(1); p.Role != RoleKick {
		t.Errorf("profile lost on grow: %+v", p)
	}
	if p, _ := m.Get(4); p.Index != 4 {
		t.Errorf("new profile index = %d, want 4", p.Index)
	}

	m.Resize(1)
	if got := m.Count(); got != 1 {
		t.Errorf("Count() after shrink = %d, want 1", got)
	}
}
