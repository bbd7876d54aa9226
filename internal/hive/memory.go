package hive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the hive's shared fragment store. Fragments decay over
// time and are dropped once relevance falls below the floor.
type MemoryStore struct {
	mu        sync.Mutex
	fragments map[string]*Fragment
	now       func() time.Time
}

// NewMemoryStore creates an empty store. now defaults to time.Now; tests
// may override it for deterministic decay calculations.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{fragments: make(map[string]*Fragment), now: now}
}

// fragmentID derives a content-addressed id: the memory type tag
// followed by the first 12 hex characters of the content's JSON hash.
func fragmentID(memType MemoryType, content any) (string, error) {
	serialized, err := serialize(content)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(serialized))
	return string(memType) + "_" + hex.EncodeToString(sum[:])[:12], nil
}

func serialize(content any) (string, error) {
	if s, ok := content.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Store inserts or overwrites (on a duplicate content-derived id) a
// fragment and returns its id.
func (m *MemoryStore) Store(content any, memType MemoryType, contributors []string, confidence float64) (string, error) {
	id, err := fragmentID(memType, content)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments[id] = &Fragment{
		FragmentID:      id,
		MemoryType:      memType,
		Content:         content,
		Contributors:    append([]string(nil), contributors...),
		ConfidenceScore: confidence,
		RelevanceDecay:  1.0,
		LastAccessed:    m.now(),
	}
	return id, nil
}

// Recall filters by memType (if non-empty) and min confidence, scores
// by Jaccard similarity of lowercased whitespace tokens against the
// fragment's serialized content, drops anything below 0.3 relevance,
// increments access_count and last_accessed on returned fragments, and
// returns the top 10 by confidence_score*relevance_decay.
func (m *MemoryStore) Recall(query string, memType MemoryType, minConfidence float64) ([]Fragment, error) {
	queryTokens := tokenize(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		frag      *Fragment
		relevance float64
	}
	var candidates []scored

	for _, f := range m.fragments {
		if memType != "" && f.MemoryType != memType {
			continue
		}
		if f.ConfidenceScore < minConfidence {
			continue
		}
		serialized, err := serialize(f.Content)
		if err != nil {
			return nil, err
		}
		relevance := jaccard(queryTokens, tokenize(serialized))
		if relevance < 0.3 {
			continue
		}
		candidates = append(candidates, scored{frag: f, relevance: relevance})
	}

	sort.Slice(candidates, func(i, j int) bool {
		si := candidates[i].frag.ConfidenceScore * candidates[i].frag.RelevanceDecay
		sj := candidates[j].frag.ConfidenceScore * candidates[j].frag.RelevanceDecay
		if si != sj {
			return si > sj
		}
		return candidates[i].frag.FragmentID < candidates[j].frag.FragmentID
	})

	const topK = 10
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]Fragment, 0, len(candidates))
	for _, c := range candidates {
		c.frag.AccessCount++
		c.frag.LastAccessed = m.now()
		out = append(out, *c.frag)
	}
	return out, nil
}

func tokenize(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// decayFloor is the relevance_decay threshold below which a fragment is
// dropped from the store.
const decayFloor = 0.1

// DecayMemory applies exponential decay to every fragment's relevance
// based on time since last access, dropping any fragment that falls
// below decayFloor.
func (m *MemoryStore) DecayMemory() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, f := range m.fragments {
		hours := now.Sub(f.LastAccessed).Seconds() / 3600.0
		f.RelevanceDecay *= math.Pow(0.95, hours)
		if f.RelevanceDecay < decayFloor {
			delete(m.fragments, id)
		}
	}
}

// Len returns the number of fragments currently stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fragments)
}

// Get returns a copy of the fragment for id, for diagnostics/tests.
func (m *MemoryStore) Get(id string) (Fragment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fragments[id]
	if !ok {
		return Fragment{}, false
	}
	return *f, true
}
