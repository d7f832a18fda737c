package fakechat

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Event mix probabilities.
const (
	superchatProbability  = 0.25
	mentionProbability    = 0.7
	dualMentionChance     = 0.15
	membershipProbability = 0.05
)

// Superchat amounts in micros of the currency unit.
var superchatAmounts = []int64{ //nolint:gochecknoglobals // fixed tier table
	1_000_000,
	2_000_000,
	5_000_000,
	10_000_000,
	20_000_000,
	50_000_000,
	100_000_000,
}

// Currencies weighted roughly like a real audience.
var superchatCurrencies = []string{ //nolint:gochecknoglobals // fixed tier table
	"USD", "USD", "USD", "EUR", "MXN", "COP", "ARS",
}

var messageTemplates = []string{ //nolint:gochecknoglobals // fixed template table
	"VAMOS %s",
	"para %s con todo",
	"apoyo a %s",
	"team %s",
	"%s eres la mejor",
	"esto es para %s ❤️",
	"si %s",
}

var dualTemplates = []string{ //nolint:gochecknoglobals // fixed template table
	"para %s y %s",
	"%s y %s los amo",
	"team %s, team %s",
}

var neutralMessages = []string{ //nolint:gochecknoglobals // fixed template table
	"hola a todos",
	"que capitulo",
	"saludos desde lima",
	"quien mas viendo a esta hora",
	"jajaja",
	"no puedo creer lo de anoche",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// pick returns a random element of items.
func pick[T any](items []T) T {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(items))))
	return items[n.Int64()]
}

// generateEvent produces one chat item. Roughly a quarter are
// superchats, and most messages mention a cast member so the
// downstream classifier has something to chew on.
func (s *Server) generateEvent(seq int64) chatItem {
	item := chatItem{
		ID: fmt.Sprintf("fake-ev-%d", seq),
	}
	item.AuthorDetails.DisplayName = fmt.Sprintf("fan-%d", seq%97)
	item.Snippet.PublishedAt = time.Now().UTC().Format(time.RFC3339)

	text := pick(neutralMessages)
	if getRandomFloat() < mentionProbability && len(s.names) > 0 {
		if getRandomFloat() < dualMentionChance && len(s.names) > 1 {
			first := pick(s.names)
			second := pick(s.names)
			for second == first {
				second = pick(s.names)
			}
			text = fmt.Sprintf(pick(dualTemplates), first, second)
		} else {
			text = fmt.Sprintf(pick(messageTemplates), pick(s.names))
		}
	}

	roll := getRandomFloat()
	switch {
	case roll < superchatProbability:
		item.Snippet.Type = "superChatEvent"
		item.Snippet.SuperChatDetails.AmountMicros = fmt.Sprintf("%d", pick(superchatAmounts))
		item.Snippet.SuperChatDetails.Currency = pick(superchatCurrencies)
		item.Snippet.SuperChatDetails.UserComment = text
	case roll < superchatProbability+membershipProbability:
		item.Snippet.Type = "newSponsorEvent"
		item.Snippet.DisplayMessage = text
	default:
		item.Snippet.Type = "textMessageEvent"
		item.Snippet.DisplayMessage = text
		item.Snippet.TextMessageDetails.MessageText = text
	}

	return item
}
