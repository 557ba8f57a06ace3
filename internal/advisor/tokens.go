package advisor

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// estimateTokens counts tokens in text with tiktoken. The configured model
// is tried first; non-OpenAI models (Groq serves open-weight models under
// their own names) fall back to the cl100k_base encoding, which is close
// enough for a cost estimate.
func estimateTokens(model, text string) (int, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return 0, fmt.Errorf("failed to get tokenizer encoding: %w", err)
		}
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode text: %w", err)
	}
	return len(ids), nil
}
