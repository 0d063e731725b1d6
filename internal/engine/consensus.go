package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/huddleworks/huddle/internal/config"
	"github.com/huddleworks/huddle/pkg/types"
)

// DisagreementDetector decides whether a later discussion entry disagrees
// with an earlier one. It is an explicit, replaceable strategy so the
// heuristic can be swapped without touching the aggregation pipeline.
type DisagreementDetector interface {
	Disagrees(later, earlier types.DiscussionEntry) bool
}

// PhraseDisagreement is the default detector: the later message must mention
// the earlier suggestion (case-insensitive) and contain at least one marker
// phrase. It is a heuristic signal, not ground truth; sarcasm and negation
// can misclassify.
type PhraseDisagreement struct {
	phrases []string
}

// NewPhraseDisagreement builds a detector over the given marker phrases.
// An empty list falls back to the built-in defaults.
func NewPhraseDisagreement(phrases []string) *PhraseDisagreement {
	if len(phrases) == 0 {
		phrases = config.DefaultDisagreementPhrases()
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &PhraseDisagreement{phrases: lowered}
}

// Disagrees implements DisagreementDetector.
func (d *PhraseDisagreement) Disagrees(later, earlier types.DiscussionEntry) bool {
	if strings.TrimSpace(earlier.Suggestion) == "" {
		return false
	}
	msg := strings.ToLower(later.Message)
	if !strings.Contains(msg, strings.ToLower(strings.TrimSpace(earlier.Suggestion))) {
		return false
	}
	for _, phrase := range d.phrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// candidate aggregates one suggested word's support within a round.
type candidate struct {
	Word        string
	Mentions    int
	LastMention time.Time
	Supporters  map[string]bool
	Opposers    map[string]bool
	Risk        types.RiskLevel

	// Highest confidence voiced per supporter, so an agent repeating
	// themselves within a round cannot inflate the average.
	supporterConfidence map[string]float64

	// Derived at ranking time.
	netSupport        int
	supportRatio      float64
	avgConfidence     float64
	supportPercentage float64
}

// conflictPair is an unordered pair of suggested words two agents disagreed on.
type conflictPair struct {
	WordA  string
	WordB  string
	AgentA string
	AgentB string
}

// roundOutcome is the result of aggregating one discussion round.
type roundOutcome struct {
	Round        int
	Entries      []types.DiscussionEntry
	Candidates   []*candidate
	Conflicts    []conflictPair
	Participants int
	Consensus    ConsensusSnapshot
}

// consensusEngine aggregates discussion entries into a ranked consensus
// outcome and a conflict list.
type consensusEngine struct {
	cfg      config.EngineConfig
	detector DisagreementDetector
}

func newConsensusEngine(cfg config.EngineConfig, detector DisagreementDetector) *consensusEngine {
	if detector == nil {
		detector = NewPhraseDisagreement(cfg.DisagreementPhrases)
	}
	return &consensusEngine{cfg: cfg, detector: detector}
}

// aggregate processes the entries belonging to round. Entries without an
// explicit round number are treated as belonging to the current round.
// Suggested words already revealed are excluded from candidacy.
func (ce *consensusEngine) aggregate(entries []types.DiscussionEntry, round int, revealed map[string]bool) *roundOutcome {
	var inRound []types.DiscussionEntry
	agents := make(map[string]bool)
	for _, e := range entries {
		if e.Round != 0 && e.Round != round {
			continue
		}
		inRound = append(inRound, e)
		agents[e.Agent] = true
	}

	candidates := make(map[string]*candidate)
	for _, e := range inRound {
		word := types.NormalizeWord(e.Suggestion)
		if word == "" || revealed[word] {
			continue
		}

		c, ok := candidates[word]
		if !ok {
			c = &candidate{
				Word:                word,
				Supporters:          make(map[string]bool),
				Opposers:            make(map[string]bool),
				supporterConfidence: make(map[string]float64),
			}
			candidates[word] = c
		}

		c.Mentions++
		if e.Timestamp.After(c.LastMention) {
			c.LastMention = e.Timestamp
		}
		switch {
		case e.Confidence >= ce.cfg.SupportThreshold:
			c.Supporters[e.Agent] = true
			if e.Confidence > c.supporterConfidence[e.Agent] {
				c.supporterConfidence[e.Agent] = e.Confidence
			}
		case e.Confidence < ce.cfg.OpposeThreshold:
			c.Opposers[e.Agent] = true
		}
		c.Risk = types.MaxRisk(c.Risk, e.Risk)
	}

	out := &roundOutcome{
		Round:        round,
		Entries:      inRound,
		Participants: len(agents),
		Conflicts:    ce.detectConflicts(inRound),
	}
	out.Candidates = ce.rank(candidates, len(agents))
	out.Consensus = ce.classify(out.Candidates, len(agents))
	return out
}

// detectConflicts scans every (earlier, later) entry pair in the round for
// disagreements between different agents. Pairs are deduplicated by
// unordered word-pair identity.
func (ce *consensusEngine) detectConflicts(entries []types.DiscussionEntry) []conflictPair {
	var conflicts []conflictPair
	seen := make(map[string]bool)

	for i := 1; i < len(entries); i++ {
		for j := 0; j < i; j++ {
			later, earlier := entries[i], entries[j]
			if later.Agent == earlier.Agent {
				continue
			}
			wordA := types.NormalizeWord(earlier.Suggestion)
			wordB := types.NormalizeWord(later.Suggestion)
			if wordA == "" || wordB == "" || wordA == wordB {
				continue
			}
			if !ce.detector.Disagrees(later, earlier) {
				continue
			}

			key := pairKey(wordA, wordB)
			if seen[key] {
				continue
			}
			seen[key] = true
			conflicts = append(conflicts, conflictPair{
				WordA:  wordA,
				WordB:  wordB,
				AgentA: earlier.Agent,
				AgentB: later.Agent,
			})
		}
	}
	return conflicts
}

// pairKey builds an order-independent identity for a word pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// rank computes the derived scores for every candidate and sorts descending
// by (netSupport, supportRatio, avgConfidence).
func (ce *consensusEngine) rank(candidates map[string]*candidate, participants int) []*candidate {
	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		supporters, opposers := len(c.Supporters), len(c.Opposers)
		c.netSupport = supporters - opposers
		divisor := opposers
		if divisor < 1 {
			divisor = 1
		}
		c.supportRatio = float64(supporters) / float64(divisor)
		if supporters > 0 {
			var mass float64
			for _, conf := range c.supporterConfidence {
				mass += conf
			}
			c.avgConfidence = mass / float64(supporters)
		}
		if participants > 0 {
			c.supportPercentage = float64(supporters) / float64(participants)
		}
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.netSupport != b.netSupport {
			return a.netSupport > b.netSupport
		}
		if a.supportRatio != b.supportRatio {
			return a.supportRatio > b.supportRatio
		}
		return a.avgConfidence > b.avgConfidence
	})
	return ranked
}

// classify evaluates the consensus level of the top-ranked candidate only.
// The level is monotonically non-decreasing in supporter count.
func (ce *consensusEngine) classify(ranked []*candidate, participants int) ConsensusSnapshot {
	if len(ranked) == 0 {
		return ConsensusSnapshot{Level: types.ConsensusNone}
	}

	top := ranked[0]
	supporters := len(top.Supporters)

	var level types.ConsensusLevel
	switch {
	case supporters >= 3 || (supporters >= 2 && top.supportPercentage >= ce.cfg.HighSupportPercentage):
		level = types.ConsensusHigh
	case supporters >= 2 || (supporters >= 1 && top.supportPercentage >= ce.cfg.MediumSupportPercentage):
		level = types.ConsensusMedium
	case supporters >= 1:
		level = types.ConsensusLow
	default:
		level = types.ConsensusNone
	}

	return ConsensusSnapshot{
		Reached:    level == types.ConsensusHigh || level == types.ConsensusMedium,
		Word:       top.Word,
		Level:      level,
		Support:    top.supportPercentage,
		Supporters: sortedKeys(top.Supporters),
		Opposers:   sortedKeys(top.Opposers),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
