// Package classify resolves free-text chat messages to the participants
// they are meant to support.
//
// Resolution runs in three tiers of decreasing confidence: direct-intent
// phrase templates, a contextual keyword scan with a negative-sentiment
// gate, and a last-resort casual-mention scan. Classification never
// returns an error; the worst outcome is an unresolved result.
package classify

import (
	"sort"
	"strings"

	"github.com/okian/fanscore/internal/domain/model"
)

// Method identifies which tier produced a classification.
type Method string

// Classification methods.
const (
	MethodDirectIntent      Method = "direct_intent"
	MethodContextualKeyword Method = "contextual_keyword"
	MethodCasualMention     Method = "casual_mention"
	MethodUnresolved        Method = "unresolved"
)

// Confidence values for the scan tiers. Direct-intent confidence comes
// from the matching rule.
const (
	contextualConfidence = 60
	casualConfidence     = 40
)

// Result is a tagged classification outcome.
type Result struct {
	// Participants holds the resolved participant names; empty means
	// the event could not be attributed.
	Participants []string
	Method       Method
	Confidence   int
	// Suppressed marks a negative-sentiment message. Suppressed events
	// earn nobody points, not even the shared pool.
	Suppressed bool
}

// entry is a roster participant prepared for matching.
type entry struct {
	name     string
	norm     string
	keywords []string // normalized
}

// Classifier maps message text to participants using a fixed roster.
type Classifier struct {
	entries  []entry
	rules    []rule
	negative []string
	positive []string
	symbols  []string
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithNegativeLexicon replaces the negative-context phrase list.
func WithNegativeLexicon(phrases []string) Option {
	return func(c *Classifier) {
		if len(phrases) > 0 {
			c.negative = normalizeAll(phrases)
		}
	}
}

// WithPositiveLexicon replaces the positive-intent phrase list.
func WithPositiveLexicon(phrases []string) Option {
	return func(c *Classifier) {
		if len(phrases) > 0 {
			c.positive = normalizeAll(phrases)
		}
	}
}

// WithAffectionSymbols replaces the affection symbol list.
func WithAffectionSymbols(symbols []string) Option {
	return func(c *Classifier) {
		if len(symbols) > 0 {
			c.symbols = symbols
		}
	}
}

// New creates a Classifier over the given roster. Participants flagged
// inactive are excluded from every resolution step.
func New(roster []model.Participant, opts ...Option) *Classifier {
	c := &Classifier{
		rules:    defaultRules,
		negative: normalizeAll(defaultNegativeLexicon),
		positive: normalizeAll(defaultPositiveLexicon),
		symbols:  defaultAffectionSymbols,
	}

	for _, p := range roster {
		if !p.Active {
			continue
		}
		e := entry{name: p.Name, norm: Normalize(p.Name)}
		for _, kw := range p.Keywords {
			if n := Normalize(kw); n != "" {
				e.keywords = append(e.keywords, n)
			}
		}
		c.entries = append(c.entries, e)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// match is one resolved direct-intent hit.
type match struct {
	participant string
	confidence  int
	offset      int
}

// Classify resolves a raw message to zero, one or many participants.
func (c *Classifier) Classify(rawText string) Result {
	msg := Normalize(rawText)
	if msg == "" {
		return Result{Method: MethodUnresolved}
	}

	positive := containsAny(msg, c.positive) || containsAny(rawText, c.symbols)
	negative := !positive && containsAny(msg, c.negative)

	// Tier 1: direct-intent templates. A negative message without a
	// positive override never yields a direct award.
	if !negative {
		if matches := c.directMatches(rawText, msg); len(matches) > 0 {
			return winners(matches)
		}
	}

	// Tier 2: contextual keyword scan, gated on sentiment.
	if negative {
		return Result{Method: MethodUnresolved, Suppressed: true}
	}
	if found := c.keywordScan(msg); len(found) == 1 {
		return Result{Participants: found, Method: MethodContextualKeyword, Confidence: contextualConfidence}
	} else if len(found) > 1 {
		// Ambiguous mentions are not split among named participants;
		// they fall through to pooling.
		return Result{Method: MethodUnresolved}
	}

	// Tier 3: casual mention. Widens the scan to bare participant names
	// so a message can still resolve when no configured keyword hits.
	if found := c.casualScan(msg); len(found) == 1 {
		return Result{Participants: found, Method: MethodCasualMention, Confidence: casualConfidence}
	}

	return Result{Method: MethodUnresolved}
}

// directMatches applies every rule template exhaustively and resolves the
// captured names against the roster.
func (c *Classifier) directMatches(rawText, msg string) []match {
	var out []match

	hasSymbol := containsAny(rawText, c.symbols)

	for _, r := range c.rules {
		if r.needsSymbol && !hasSymbol {
			continue
		}
		for _, idx := range r.re.FindAllStringSubmatchIndex(msg, -1) {
			// idx layout: pair 0 is the whole match, pair i is capture i.
			for slot := 1; slot <= r.arity; slot++ {
				start, end := idx[2*slot], idx[2*slot+1]
				if start < 0 {
					continue
				}
				name := c.resolveName(msg[start:end])
				if name == "" {
					continue
				}
				out = append(out, match{participant: name, confidence: r.confidence, offset: idx[0]})
			}
		}
	}

	return out
}

// winners keeps the matches at the single highest confidence, breaking
// ties by text offset descending: a later assertion overrides an earlier
// one. All distinct participants in the winning tier are returned.
func winners(matches []match) Result {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].confidence != matches[j].confidence {
			return matches[i].confidence > matches[j].confidence
		}
		return matches[i].offset > matches[j].offset
	})

	top := matches[0].confidence
	var names []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if m.confidence != top {
			break
		}
		if seen[m.participant] {
			continue
		}
		seen[m.participant] = true
		names = append(names, m.participant)
	}

	return Result{Participants: names, Method: MethodDirectIntent, Confidence: top}
}

// resolveName maps a captured string to a roster participant: exact name,
// exact keyword, then substring containment either way for captures of
// three or more characters.
func (c *Classifier) resolveName(captured string) string {
	if captured == "" {
		return ""
	}

	for _, e := range c.entries {
		if e.norm == captured {
			return e.name
		}
		for _, kw := range e.keywords {
			if kw == captured {
				return e.name
			}
		}
	}

	if len(captured) >= 3 {
		for _, e := range c.entries {
			if strings.Contains(e.norm, captured) || strings.Contains(captured, e.norm) {
				return e.name
			}
		}
	}

	return ""
}

// keywordScan returns the distinct participants whose keywords appear
// anywhere in the normalized message.
func (c *Classifier) keywordScan(msg string) []string {
	var found []string
	for _, e := range c.entries {
		for _, kw := range e.keywords {
			if strings.Contains(msg, kw) {
				found = append(found, e.name)
				break
			}
		}
	}
	return found
}

// casualScan matches configured keywords plus bare participant names.
func (c *Classifier) casualScan(msg string) []string {
	var found []string
	for _, e := range c.entries {
		hit := strings.Contains(msg, e.norm)
		if !hit {
			for _, kw := range e.keywords {
				if strings.Contains(msg, kw) {
					hit = true
					break
				}
			}
		}
		if hit {
			found = append(found, e.name)
		}
	}
	return found
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
