package classify

import "strings"

// Negative-context phrases. A message containing any of these (without a
// positive override) must not earn the mentioned participant points.
// Entries are matched against the normalized message, so accents are folded.
var defaultNegativeLexicon = []string{
	"no es", "no tiene", "sin embargo", "aunque",
	"mentira", "fake", "falso", "no me gusta", "odio",
	"terrible", "malo", "peor", "nunca", "jamas",
	"ridicula", "ridiculo", "me tiene halta", "me tiene harto",
	"me molesta", "fastidiosa", "fastidioso", "insoportable",
	"pesada", "pesado", "toxica", "toxico", "aburrida", "aburrido",
	"se paro", "se salio", "abandono", "left the show",
	"trampa", "tramposa", "tramposo", "cheated", "hizo mal", "revisar porque",
	"the worst", "i hate",
}

// Positive-intent phrases. Any of these overrides a negative context.
var defaultPositiveLexicon = []string{
	"puntos para", "puntos es para", "points for", "que la amo", "que lo amo",
	"apoyo a", "voy con", "team", "#", "me gusta", "amo", "i love",
	"es mi favorita", "es mi favorito", "my favorite", "vote for",
	"la mejor", "el mejor", "the best",
}

// Affection symbols also count as a positive override, and gate the
// implicit "X y Y" rule.
var defaultAffectionSymbols = []string{
	"💕", "💖", "💗", "💘", "💙", "💚", "💛", "💜", "🧡", "❤️", "🩷", "😍", "🥰", "😘",
}

// accentFold maps accented runes to their ASCII base so keyword and name
// comparisons are accent-insensitive.
var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c', 'ý': 'y',
}

// Normalize lower-cases, accent-folds and trims text for matching.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	return strings.Map(func(r rune) rune {
		if folded, ok := accentFold[r]; ok {
			return folded
		}
		return r
	}, lowered)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
