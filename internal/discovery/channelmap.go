package discovery

import "sync"

// ChannelMap is the thread-safe store of channel profiles, indexed by the
// 1-based channel number. Readers never block readers.
type ChannelMap struct {
	mu       sync.RWMutex
	channels []ChannelProfile
}

// NewChannelMap creates a map for count channels.
func NewChannelMap(count int) *ChannelMap {
	m := &ChannelMap{}
	m.Resize(count)
	return m
}

// Resize adjusts the channel count, preserving existing profiles where the
// index survives.
func (m *ChannelMap) Resize(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.channels
	m.channels = make([]ChannelProfile, count)
	for i := range m.channels {
		if i < len(old) {
			m.channels[i] = old[i]
		}
		m.channels[i].Index = i + 1
	}
}

// Update stores a profile at its own index. Out-of-range profiles are
// dropped.
func (m *ChannelMap) Update(p ChannelProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Index < 1 || p.Index > len(m.channels) {
		return
	}
	m.channels[p.Index-1] = p
}

// Get returns the profile for channel ch (1-based).
func (m *ChannelMap) Get(ch int) (ChannelProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ch < 1 || ch > len(m.channels) {
		return ChannelProfile{}, false
	}
	return m.channels[ch-1], true
}

// ByRole returns all channels with the given role.
func (m *ChannelMap) ByRole(role Role) []ChannelProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ChannelProfile
	for _, c := range m.channels {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// ByGroup returns all channels in the given group.
func (m *ChannelMap) ByGroup(group string) []ChannelProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ChannelProfile
	for _, c := range m.channels {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out
}

// Active returns the channels that currently carry signal and are not
// muted.
func (m *ChannelMap) Active() []ChannelProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ChannelProfile
	for _, c := range m.channels {
		if c.Fingerprint.HasSignal && !c.Muted {
			out = append(out, c)
		}
	}
	return out
}

// All returns a copy of every profile.
func (m *ChannelMap) All() []ChannelProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ChannelProfile, len(m.channels))
	copy(out, m.channels)
	return out
}

// Count reports the channel count.
func (m *ChannelMap) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
