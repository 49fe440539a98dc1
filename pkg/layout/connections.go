package layout

import (
	"sort"

	"github.com/jheling/blockwork/pkg/block"
)

// ConnectionManager is a spatial index over tracked connections, bucketed
// by connection type with each bucket sorted by workspace Y. The manager
// installs itself as the position delegate of every tracked connection, so
// layout-driven moves rebucket connections automatically.
type ConnectionManager struct {
	buckets map[block.ConnectionType][]*block.Connection
	tracked map[*block.Connection]bool
}

// NewConnectionManager returns an empty index.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		buckets: make(map[block.ConnectionType][]*block.Connection),
		tracked: make(map[*block.Connection]bool),
	}
}

// Track adds c to the index and installs the manager as its position
// delegate. Tracking an already tracked connection is a no-op.
func (m *ConnectionManager) Track(c *block.Connection) {
	if c == nil || m.tracked[c] {
		return
	}
	m.tracked[c] = true
	c.PositionDelegate = m
	m.insert(c)
}

// Untrack removes c from the index and clears its delegate.
func (m *ConnectionManager) Untrack(c *block.Connection) {
	if c == nil || !m.tracked[c] {
		return
	}
	delete(m.tracked, c)
	if c.PositionDelegate == m {
		c.PositionDelegate = nil
	}
	m.remove(c)
}

// Tracked reports whether c is in the index.
func (m *ConnectionManager) Tracked(c *block.Connection) bool { return m.tracked[c] }

// TrackedCount returns the number of indexed connections.
func (m *ConnectionManager) TrackedCount() int { return len(m.tracked) }

// WillChangePosition removes c from its bucket while its position is still
// the indexed one.
func (m *ConnectionManager) WillChangePosition(c *block.Connection) {
	if m.tracked[c] {
		m.remove(c)
	}
}

// DidChangePosition reinserts c at its new position.
func (m *ConnectionManager) DidChangePosition(c *block.Connection) {
	if m.tracked[c] {
		m.insert(c)
	}
}

func (m *ConnectionManager) insert(c *block.Connection) {
	bucket := m.buckets[c.Type()]
	y := c.Position().Y
	idx := sort.Search(len(bucket), func(i int) bool { return bucket[i].Position().Y >= y })
	bucket = append(bucket, nil)
	copy(bucket[idx+1:], bucket[idx:])
	bucket[idx] = c
	m.buckets[c.Type()] = bucket
}

func (m *ConnectionManager) remove(c *block.Connection) {
	bucket := m.buckets[c.Type()]
	for i, existing := range bucket {
		if existing == c {
			m.buckets[c.Type()] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// ClosestAvailableConnection returns the nearest tracked connection that c
// could connect to, at most maxRadius workspace units away, or nil when no
// candidate qualifies. Candidates on c's own root block never qualify.
func (m *ConnectionManager) ClosestAvailableConnection(c *block.Connection, maxRadius float64) *block.Connection {
	if c == nil || maxRadius <= 0 {
		return nil
	}
	var best *block.Connection
	bestDist := maxRadius * maxRadius // DistanceTo is a squared distance
	for _, candidate := range m.neighborhood(c, maxRadius) {
		if candidate.Connected() {
			continue
		}
		if !c.CanConnectTo(candidate) {
			continue
		}
		d := c.Position().DistanceTo(candidate.Position())
		if best == nil && d == bestDist {
			best = candidate
			continue
		}
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// NeighborsWithinRadius returns every tracked opposite-type connection on
// another root block within radius of c, nearest first. Connected
// candidates are included: proximity matters regardless of availability.
func (m *ConnectionManager) NeighborsWithinRadius(c *block.Connection, radius float64) []*block.Connection {
	if c == nil || radius <= 0 {
		return nil
	}
	limit := radius * radius
	var out []*block.Connection
	for _, candidate := range m.neighborhood(c, radius) {
		if c.Position().DistanceTo(candidate.Position()) <= limit {
			out = append(out, candidate)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return c.Position().DistanceTo(out[i].Position()) < c.Position().DistanceTo(out[j].Position())
	})
	return out
}

// neighborhood returns the opposite-type bucket slice whose Y coordinates
// fall within radius of c, excluding connections on c's own root block.
// The Y window is a coarse cut; callers still check true distances.
func (m *ConnectionManager) neighborhood(c *block.Connection, radius float64) []*block.Connection {
	bucket := m.buckets[c.Type().OppositeType()]
	yMin, yMax := c.Position().Y-radius, c.Position().Y+radius
	start := sort.Search(len(bucket), func(i int) bool { return bucket[i].Position().Y >= yMin })
	var root *block.Block
	if src := c.SourceBlock(); src != nil {
		root = src.RootBlock()
	}
	var out []*block.Connection
	for _, candidate := range bucket[start:] {
		if candidate.Position().Y > yMax {
			break
		}
		src := candidate.SourceBlock()
		if src == nil || (root != nil && src.RootBlock() == root) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}
