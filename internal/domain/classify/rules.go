package classify

import "regexp"

// rule is one direct-intent phrase template. Rules are evaluated
// exhaustively; priority comes from the declared confidence plus the
// tie-break comparators, not from rule order.
type rule struct {
	re         *regexp.Regexp
	confidence int
	arity      int
	name       string
	// needsSymbol gates the rule behind an affection symbol in the
	// message; used for the implicit two-name rule, which would otherwise
	// fire on any "X y Y" prose.
	needsSymbol bool
}

// conn matches the connector between two names in two-slot templates.
const conn = `(?:y|and|&)`

// defaultRules mirrors the assignment phrases seen in live chats,
// Spanish first with English equivalents. Applied to normalized text, so
// accented forms are already folded.
var defaultRules = []rule{
	{re: regexp.MustCompile(`puntos?\s+para\s+(\w+)\s+` + conn + `\s+(\w+)`), confidence: 100, arity: 2, name: "puntos para X y Y"},
	{re: regexp.MustCompile(`puntos?\s+para\s+(\w+)`), confidence: 100, arity: 1, name: "puntos para X"},
	{re: regexp.MustCompile(`points?\s+for\s+(\w+)\s+` + conn + `\s+(\w+)`), confidence: 100, arity: 2, name: "points for X and Y"},
	{re: regexp.MustCompile(`points?\s+for\s+(\w+)`), confidence: 100, arity: 1, name: "points for X"},
	{re: regexp.MustCompile(`mis\s+puntos?\s+van\s+para\s+(\w+)`), confidence: 100, arity: 1, name: "mis puntos van para X"},
	{re: regexp.MustCompile(`puntos?\s+a\s+(\w+)`), confidence: 95, arity: 1, name: "puntos a X"},
	{re: regexp.MustCompile(`para\s+(\w+)\s*$`), confidence: 95, arity: 1, name: "para X al final"},
	{re: regexp.MustCompile(`voy\s+con\s+(\w+)`), confidence: 90, arity: 1, name: "voy con X"},
	{re: regexp.MustCompile(`#(\w+)`), confidence: 90, arity: 1, name: "#X"},
	{re: regexp.MustCompile(`apoyo\s+(?:a\s+)?(\w+)\s+` + conn + `\s+(\w+)`), confidence: 85, arity: 2, name: "apoyo a X y Y"},
	{re: regexp.MustCompile(`apoyo\s+(?:a\s+)?(\w+)`), confidence: 85, arity: 1, name: "apoyo a X"},
	{re: regexp.MustCompile(`pero\s+(\w+)\s+si\b`), confidence: 85, arity: 1, name: "pero X si"},
	{re: regexp.MustCompile(`team\s+(\w+)\s+` + conn + `\s+(\w+)`), confidence: 85, arity: 2, name: "team X y Y"},
	{re: regexp.MustCompile(`team\s+(\w+)`), confidence: 80, arity: 1, name: "team X"},
	// Frequent chat typos for "team".
	{re: regexp.MustCompile(`tea\s+(\w+)\s+` + conn + `\s+(\w+)`), confidence: 85, arity: 2, name: "tea X y Y"},
	{re: regexp.MustCompile(`tea\s+(\w+)`), confidence: 80, arity: 1, name: "tea X"},
	{re: regexp.MustCompile(`tema\s+(\w+)`), confidence: 80, arity: 1, name: "tema X"},
	{re: regexp.MustCompile(`tean\s+(\w+)`), confidence: 80, arity: 1, name: "tean X"},
	{re: regexp.MustCompile(`#team(\w+)`), confidence: 80, arity: 1, name: "#teamX"},
	{re: regexp.MustCompile(`vamos\s+(\w+)\s+` + conn + `\s+(\w+)`), confidence: 75, arity: 2, name: "vamos X y Y"},
	{re: regexp.MustCompile(`vamos\s+(\w+)`), confidence: 75, arity: 1, name: "vamos X"},
	{re: regexp.MustCompile(`\b(\w+)\s+si\b`), confidence: 70, arity: 1, name: "X si"},
	{re: regexp.MustCompile(`\b(\w+)\s+` + conn + `\s+(\w+)\b`), confidence: 65, arity: 2, name: "X y Y implicito", needsSymbol: true},
}
