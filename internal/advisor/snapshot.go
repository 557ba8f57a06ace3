package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/finwise/advisor/internal/api/groq"
	"github.com/finwise/advisor/internal/storage"
)

const (
	// ProviderName identifies the upstream provider on persisted records.
	ProviderName = "groq"

	// PromptVersion is stamped on every advice record so stored results can
	// be correlated with the prompt that produced them.
	PromptVersion = 1

	// SnapshotLimit bounds the number of transactions serialized into the
	// prompt.
	SnapshotLimit = 100
)

const systemPrompt = `You are a helpful financial advisor. Analyze the following list of recent transactions and provide brief, actionable advice. Focus on spending patterns, potential savings, and category analysis. The user wants concrete tips. Format your response as a JSON object with three keys: "summary" (a one-sentence overview), "positive_points" (an array of strings for good habits), and "areas_for_improvement" (an array of strings for suggestions).`

// RenderSnapshot serializes transactions into the prompt snapshot, one line
// per transaction: "date: description ($amount)". Callers pass transactions
// newest first; the order is preserved.
func RenderSnapshot(txs []storage.Transaction) string {
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		var b strings.Builder
		b.WriteString(tx.Date.Format("2006-01-02"))
		b.WriteString(": ")
		b.WriteString(tx.Description)
		b.WriteString(" ($")
		b.WriteString(strconv.FormatFloat(tx.Amount, 'f', 2, 64))
		b.WriteString(")")
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// SnapshotHash returns the SHA-256 hex digest of a rendered snapshot. It is
// stored on the advice record for idempotency and audit: two records with
// the same hash were computed from identical input.
func SnapshotHash(snapshot string) string {
	sum := sha256.Sum256([]byte(snapshot))
	return hex.EncodeToString(sum[:])
}

// BuildMessages constructs the upstream conversation for a snapshot.
func BuildMessages(snapshot string) []groq.ChatCompletionMessage {
	return []groq.ChatCompletionMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Here are my recent transactions:\n\n" + snapshot},
	}
}
