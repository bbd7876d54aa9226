// Package hive implements the hive intelligence engine: expertise-weighted
// distributed voting over a graph of nodes, and a decaying collective
// memory store shared across decisions.
package hive

import (
	"sort"
	"sync"
	"time"
)

// DIM is the fixed length of an expertise vector, one entry per domain.
const DIM = 10

// Domains is the fixed ordering of expertise dimensions.
var Domains = [DIM]string{
	"development", "ai_ml", "research", "design", "testing",
	"security", "deployment", "coordination", "analysis", "business",
}

// Method selects how a decision's votes are resolved into an outcome.
type Method string

const (
	MethodConsensus Method = "consensus"
	MethodWeighted  Method = "weighted"
	MethodQuorum    Method = "quorum"
	MethodEmergent  Method = "emergent"
)

// MemoryType classifies a stored fragment.
type MemoryType string

const (
	MemoryWorking   MemoryType = "working"
	MemoryEpisodic  MemoryType = "episodic"
	MemorySemantic  MemoryType = "semantic"
	MemoryCollective MemoryType = "collective"
)

// Node is a hive participant: one agent's expertise profile and its
// undirected connections to other nodes.
type Node struct {
	NodeID          string
	AgentID         string
	ExpertiseVector [DIM]float64
	InfluenceScore  float64

	mu                  sync.Mutex
	participationHistory []string
	connections          map[string]bool
	memoryContribution   map[string]any
}

func newNode(nodeID, agentID string, vector [DIM]float64) *Node {
	return &Node{
		NodeID:               nodeID,
		AgentID:              agentID,
		ExpertiseVector:      vector,
		InfluenceScore:       1.0,
		connections:          make(map[string]bool),
		memoryContribution:   make(map[string]any),
	}
}

func (n *Node) connectTo(other *Node) {
	n.mu.Lock()
	n.connections[other.NodeID] = true
	n.mu.Unlock()
}

// Connections returns a sorted copy of n's connection set.
func (n *Node) Connections() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.connections))
	for id := range n.connections {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (n *Node) recordParticipation(decisionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.participationHistory = append(n.participationHistory, decisionID)
}

// Option is one candidate answer to a decision's question.
type Option struct {
	ID                string
	Description       string
	RequiredExpertise []int // indices into the expertise vector, mod DIM
}

// Vote is one node's contribution to a decision.
type Vote struct {
	NodeID        string
	ChosenOption  string
	Confidence    float64
	Scores        map[string]float64
	VoteTimestamp time.Time
}

// Decision tracks one InitiateDecision call through resolution.
type Decision struct {
	DecisionID       string
	Question         string
	Options          []Option
	Method           Method
	Participants     map[string]bool
	CreatedAt        time.Time
	ResolvedAt        time.Time

	mu               sync.Mutex
	votes            map[string]Vote
	consensusReached bool
	confidence       float64
	resolved         bool
	failureReason    string
}

func newDecision(id, question string, options []Option, method Method, participants []string) *Decision {
	p := make(map[string]bool, len(participants))
	for _, id := range participants {
		p[id] = true
	}
	return &Decision{
		DecisionID:   id,
		Question:     question,
		Options:      options,
		Method:       method,
		Participants: p,
		CreatedAt:    time.Now(),
		votes:        make(map[string]Vote),
	}
}

func (d *Decision) addVote(v Vote) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.votes[v.NodeID] = v
}

// Votes returns a copy of the votes collected so far.
func (d *Decision) Votes() map[string]Vote {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Vote, len(d.votes))
	for k, v := range d.votes {
		out[k] = v
	}
	return out
}

// Outcome is the result of resolving a decision.
type Outcome struct {
	DecisionID       string
	Winner           string
	ConsensusReached bool
	Confidence       float64
	FailureReason    string
}

// Fragment is a unit of hive memory.
type Fragment struct {
	FragmentID     string
	MemoryType     MemoryType
	Content        any
	Contributors   []string
	ConfidenceScore float64
	AccessCount    int
	LastAccessed   time.Time
	RelevanceDecay float64
}

// Signature is the behavioral record kept per resolved decision, used by
// emergent-pattern detection across the decision history.
type Signature struct {
	Method           Method
	ParticipantCount int
	ConsensusReached bool
	Confidence       float64
}
