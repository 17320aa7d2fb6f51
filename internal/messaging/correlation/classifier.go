// Package correlation matches accepted inbound messages to pending orders
// and drives their confirm/reject transitions.
package correlation

import "strings"

// Intent is the classified meaning of a supplier reply.
type Intent string

const (
	IntentConfirm      Intent = "confirm"
	IntentReject       Intent = "reject"
	IntentUnrecognized Intent = "unrecognized"
)

// Classifier decides what a supplier reply means. Implementations must be
// safe for concurrent use.
type Classifier interface {
	Classify(body string) Intent
}

// KeywordClassifier classifies replies by keyword lookup over folded,
// accent-stripped tokens. Rejections win over confirmations: "no, cancelá
// el pedido" contains no decisive confirmation however many tokens match.
type KeywordClassifier struct {
	confirm map[string]struct{}
	reject  map[string]struct{}
}

// Suppliers reply informally; the defaults cover the Argentine Spanish
// vocabulary seen in real conversations.
var (
	defaultConfirmWords = []string{
		"si", "sí", "ok", "oka", "okey", "dale", "listo", "confirmo",
		"confirmado", "perfecto", "genial", "bueno", "va", "joya",
	}
	defaultRejectWords = []string{
		"no", "cancela", "cancelá", "cancelalo", "cancelado", "rechazo",
		"rechazado", "imposible", "negativo",
	}
)

// NewKeywordClassifier builds a classifier with the default Spanish vocabulary.
func NewKeywordClassifier() *KeywordClassifier {
	return NewKeywordClassifierWithVocabulary(defaultConfirmWords, defaultRejectWords)
}

// NewKeywordClassifierWithVocabulary builds a classifier with a custom
// vocabulary, for deployments serving other locales.
func NewKeywordClassifierWithVocabulary(confirm, reject []string) *KeywordClassifier {
	c := &KeywordClassifier{
		confirm: make(map[string]struct{}, len(confirm)),
		reject:  make(map[string]struct{}, len(reject)),
	}
	for _, w := range confirm {
		c.confirm[foldToken(w)] = struct{}{}
	}
	for _, w := range reject {
		c.reject[foldToken(w)] = struct{}{}
	}
	return c
}

func (c *KeywordClassifier) Classify(body string) Intent {
	var sawConfirm, sawReject bool
	for _, token := range tokenize(body) {
		if _, ok := c.reject[token]; ok {
			sawReject = true
		}
		if _, ok := c.confirm[token]; ok {
			sawConfirm = true
		}
	}
	switch {
	case sawReject:
		return IntentReject
	case sawConfirm:
		return IntentConfirm
	default:
		return IntentUnrecognized
	}
}

func tokenize(body string) []string {
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return !isWordRune(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, foldToken(f))
	}
	return out
}

func isWordRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
		return true
	}
	// Accented Spanish letters and ñ.
	return strings.ContainsRune("áéíóúüñÁÉÍÓÚÜÑ", r)
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
)

// foldToken lowercases and strips Spanish accents so "Sí" and "si" compare
// equal.
func foldToken(s string) string {
	return accentFolder.Replace(strings.ToLower(s))
}

// Compile-time check that KeywordClassifier implements Classifier
var _ Classifier = (*KeywordClassifier)(nil)
