package hive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/rng"
)

// expertiseScore is the mean, over an option's required expertise
// indices, of the node's expertise_vector at that index (mod DIM). With
// no required expertise, every option scores a neutral 0.5.
func expertiseScore(node *Node, opt Option) float64 {
	if len(opt.RequiredExpertise) == 0 {
		return 0.5
	}
	var sum float64
	for _, idx := range opt.RequiredExpertise {
		i := ((idx % DIM) + DIM) % DIM
		sum += node.ExpertiseVector[i]
	}
	return sum / float64(len(opt.RequiredExpertise))
}

// influenceScore is the mean, over a node's connected neighbors who have
// already voted for opt, of their vote confidence. With no such
// neighbor, the score is a neutral 0.5.
func influenceScore(node *Node, optID string, votesSoFar map[string]Vote) float64 {
	var sum float64
	var count int
	for _, neighborID := range node.Connections() {
		v, ok := votesSoFar[neighborID]
		if !ok || v.ChosenOption != optID {
			continue
		}
		sum += v.Confidence
		count++
	}
	if count == 0 {
		return 0.5
	}
	return sum / float64(count)
}

// castVote scores every option for node given the votes collected so
// far, and returns the argmax Vote.
func castVote(node *Node, options []Option, votesSoFar map[string]Vote) Vote {
	scores := make(map[string]float64, len(options))
	var winner Option
	bestTotal := -1.0
	var winnerExpertise float64

	for _, opt := range options {
		expertise := expertiseScore(node, opt)
		influence := influenceScore(node, opt.ID, votesSoFar)
		total := (0.7*expertise+0.3*influence) * node.InfluenceScore
		scores[opt.ID] = total
		if total > bestTotal {
			bestTotal = total
			winner = opt
			winnerExpertise = expertise
		}
	}

	confidence := winnerExpertise + 0.2
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Vote{
		NodeID:        node.NodeID,
		ChosenOption:  winner.ID,
		Confidence:    confidence,
		Scores:        scores,
		VoteTimestamp: time.Now(),
	}
}

// collectVotes runs one deliberation-and-vote collector per node
// concurrently, each sleeping a random delay in [0.1, 2.0]s before
// voting against whatever ballots have landed so far. The whole batch is
// bounded by ctx; a timeout simply means resolution proceeds with
// whatever votes arrived in time, per the component design's gather-
// with-timeout contract.
func collectVotes(ctx context.Context, decision *Decision, nodes []*Node, deliberation rng.Source, sleep func(context.Context, time.Duration)) {
	var wg sync.WaitGroup

	for _, node := range nodes {
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()

			delay := time.Duration(rng.InRange(deliberation, 0.1, 2.0) * float64(time.Second))
			sleep(ctx, delay)
			if ctx.Err() != nil {
				return
			}

			votesSoFar := decision.Votes()
			vote := castVote(node, decision.Options, votesSoFar)
			decision.addVote(vote)
			node.recordParticipation(decision.DecisionID)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func defaultSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// resolve applies the decision's resolution method to its collected
// votes and returns the outcome, recording consensus/confidence on the
// decision itself. nodesByID supplies each voter's influence_score for
// the Weighted rule.
func resolve(decision *Decision, nodesByID map[string]*Node) Outcome {
	votes := decision.Votes()

	var outcome Outcome
	switch decision.Method {
	case MethodWeighted:
		outcome = resolveWeighted(decision, votes, nodesByID)
	case MethodQuorum:
		outcome = resolveQuorum(decision, votes, nodesByID)
	case MethodEmergent:
		outcome = resolveEmergent(decision, votes, nodesByID)
	default:
		outcome = resolveConsensus(decision, votes)
	}

	decision.mu.Lock()
	decision.consensusReached = outcome.ConsensusReached
	decision.confidence = outcome.Confidence
	decision.resolved = true
	decision.failureReason = outcome.FailureReason
	decision.ResolvedAt = time.Now()
	decision.mu.Unlock()

	return outcome
}

const defaultCollectiveThreshold = 0.75

func resolveConsensus(decision *Decision, votes map[string]Vote) Outcome {
	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, v := range votes {
		counts[v.ChosenOption]++
		sums[v.ChosenOption] += v.Confidence
	}

	total := len(votes)
	threshold := defaultCollectiveThreshold * float64(total)

	var winner string
	winnerCount := -1
	for optID, c := range counts {
		if c > winnerCount || (c == winnerCount && optID < winner) {
			winnerCount = c
			winner = optID
		}
	}

	if total > 0 && float64(winnerCount) >= threshold {
		return Outcome{
			DecisionID:       decision.DecisionID,
			Winner:           winner,
			ConsensusReached: true,
			Confidence:       sums[winner] / float64(winnerCount),
		}
	}

	return Outcome{
		DecisionID:       decision.DecisionID,
		Winner:           winner,
		ConsensusReached: false,
		Confidence:       meanConfidence(votes),
	}
}

func meanConfidence(votes map[string]Vote) float64 {
	if len(votes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range votes {
		sum += v.Confidence
	}
	return sum / float64(len(votes))
}

// resolveWeighted implements Weighted: per option, sum
// node.influence_score * vote.confidence; the maximum wins; confidence
// is the winner's sum over the total of all sums.
func resolveWeighted(decision *Decision, votes map[string]Vote, nodesByID map[string]*Node) Outcome {
	sums := make(map[string]float64)
	var total float64
	for _, v := range votes {
		influence := 1.0
		if n, ok := nodesByID[v.NodeID]; ok {
			influence = n.InfluenceScore
		}
		weight := influence * v.Confidence
		sums[v.ChosenOption] += weight
		total += weight
	}

	var winner string
	best := -1.0
	ids := make([]string, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if sums[id] > best {
			best = sums[id]
			winner = id
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = sums[winner] / total
	}

	return Outcome{
		DecisionID:       decision.DecisionID,
		Winner:           winner,
		ConsensusReached: winner != "",
		Confidence:       confidence,
	}
}

const quorumRatio = 0.6

func resolveQuorum(decision *Decision, votes map[string]Vote, nodesByID map[string]*Node) Outcome {
	participants := len(decision.Participants)
	if participants == 0 || float64(len(votes))/float64(participants) < quorumRatio {
		return Outcome{
			DecisionID:    decision.DecisionID,
			FailureReason: "insufficient participation",
		}
	}
	return resolveConsensus(decision, votes)
}

func resolveEmergent(decision *Decision, votes map[string]Vote, nodesByID map[string]*Node) Outcome {
	meanGap := meanInterArrivalGap(votes)
	if meanGap < 1.0 {
		confidence := 2.0 - meanGap
		if confidence > 1.0 {
			confidence = 1.0
		}
		return Outcome{
			DecisionID:       decision.DecisionID,
			Winner:           "emergent_consensus",
			ConsensusReached: true,
			Confidence:       confidence,
		}
	}
	return resolveWeighted(decision, votes, nodesByID)
}

// meanInterArrivalGap sorts vote timestamps and returns the mean gap
// between consecutive votes, in seconds. A decision with fewer than two
// votes has no gaps and is treated as an arbitrarily large mean gap so
// it never qualifies as emergent.
func meanInterArrivalGap(votes map[string]Vote) float64 {
	if len(votes) < 2 {
		return math_MaxFloat
	}
	timestamps := make([]time.Time, 0, len(votes))
	for _, v := range votes {
		timestamps = append(timestamps, v.VoteTimestamp)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	var total float64
	for i := 1; i < len(timestamps); i++ {
		total += timestamps[i].Sub(timestamps[i-1]).Seconds()
	}
	return total / float64(len(timestamps)-1)
}

const math_MaxFloat = 1e18
