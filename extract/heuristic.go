package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/teranos/smrt/inventory"
)

// OrderStatusWords are the status words recognised in questions
var OrderStatusWords = []string{"delivered", "shipped", "processing", "cancelled"}

// stopWords never count as unknown customer names
var stopWords = map[string]bool{
	"customer": true, "customers": true, "have": true, "has": true, "had": true,
	"orders": true, "order": true, "tell": true, "about": true,
	"does": true, "did": true, "any": true, "the": true, "and": true,
	"what": true, "who": true, "how": true, "many": true, "much": true,
	"show": true, "list": true, "all": true, "are": true, "there": true,
	"our": true, "for": true, "with": true, "from": true, "give": true,
	"find": true, "info": true, "details": true, "detail": true, "names": true,
	"name": true, "get": true, "can": true, "you": true, "products": true,
	"product": true, "items": true, "item": true, "inventory": true, "stock": true,
	"placed": true, "made": true, "buy": true, "bought": true, "which": true,
	"where": true, "when": true, "this": true, "that": true, "his": true,
	"her": true, "their": true, "them": true, "total": true, "number": true,
	"summary": true, "status": true, "recent": true, "latest": true, "overview": true,
}

var numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

// Heuristic is the default keyword strategy.
//
// Known customers are indexed full names (then given names) contained in the
// question. Any other alphabetic word longer than two letters is reported as an
// unknown customer candidate unless it is a known name part, a stop word, a
// product term or a status word. False positives are expected and left to the
// dispatcher.
type Heuristic struct{}

// NewHeuristic returns the default extractor
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

type candidate struct {
	value    string
	position int
}

// Extract implements Extractor
func (h *Heuristic) Extract(text string, vocab inventory.Vocabulary) EntityBag {
	lower := strings.ToLower(text)
	bag := EntityBag{
		CustomerNames:    []string{},
		UnknownCustomers: []string{},
		ProductTerms:     []string{},
		OrderStatuses:    []string{},
		Numbers:          []float64{},
	}

	// known customers: full names first, then given names not already covered
	var known []candidate
	covered := make(map[string]bool)
	for _, name := range vocab.CustomerNames {
		if pos := strings.Index(lower, name); pos >= 0 && name != "" {
			known = append(known, candidate{capitalize(name), pos})
			for _, part := range strings.Fields(name) {
				covered[part] = true
			}
		}
	}
	for _, given := range vocab.GivenNames {
		if covered[given] || given == "" {
			continue
		}
		if pos := strings.Index(lower, given); pos >= 0 {
			known = append(known, candidate{capitalize(given), pos})
			covered[given] = true
		}
	}
	bag.CustomerNames = ordered(known)

	// unknown customers: every remaining plausible word
	nameParts := make(map[string]bool)
	for _, name := range vocab.CustomerNames {
		for _, part := range strings.Fields(name) {
			nameParts[part] = true
		}
	}
	for _, given := range vocab.GivenNames {
		nameParts[given] = true
	}
	// words already claimed by another entity kind
	claimed := make(map[string]bool, len(vocab.ProductTerms)+len(OrderStatusWords))
	for _, term := range vocab.ProductTerms {
		claimed[term] = true
	}
	for _, status := range OrderStatusWords {
		claimed[status] = true
	}
	seen := make(map[string]bool)
	for _, raw := range strings.Fields(text) {
		word := strings.TrimFunc(raw, func(r rune) bool { return unicode.IsPunct(r) })
		w := strings.ToLower(word)
		if len(w) <= 2 || !isAlpha(w) || nameParts[w] || stopWords[w] || claimed[w] || seen[w] {
			continue
		}
		seen[w] = true
		bag.UnknownCustomers = append(bag.UnknownCustomers, word)
	}

	// product terms
	var terms []candidate
	for _, term := range vocab.ProductTerms {
		if len(term) <= 3 {
			continue
		}
		if pos := strings.Index(lower, term); pos >= 0 {
			terms = append(terms, candidate{term, pos})
		}
	}
	bag.ProductTerms = ordered(terms)

	// statuses
	var statuses []candidate
	for _, status := range OrderStatusWords {
		if pos := strings.Index(lower, status); pos >= 0 {
			statuses = append(statuses, candidate{capitalize(status), pos})
		}
	}
	bag.OrderStatuses = ordered(statuses)

	for _, match := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.ParseFloat(match, 64); err == nil {
			bag.Numbers = append(bag.Numbers, n)
		}
	}

	return bag
}

// ordered sorts candidates by position in the text, longer values first on ties
func ordered(cands []candidate) []string {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].position != cands[j].position {
			return cands[i].position < cands[j].position
		}
		return len(cands[i].value) > len(cands[j].value)
	})
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.value)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// capitalize upper-cases the first letter of every word
func capitalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
