package llm

import (
	"sync"

	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// TokenEncoding is the BPE all token counts use (gpt-3.5-turbo / gpt-4).
const TokenEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		// ranks ship with the loader module, no download at runtime
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, encErr = tiktoken.GetEncoding(TokenEncoding)
	})
	return enc, encErr
}

// CountTokens returns the number of cl100k_base tokens in text, or 0 if the encoding
// cannot be loaded.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	e, err := encoding()
	if err != nil {
		log.Errorf("[LLM] loading %s failed: %v", TokenEncoding, err)
		return 0
	}
	return len(e.Encode(text, nil, nil))
}
