package handler

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/llm"
	"github.com/use-agent/pageminer/models"
)

// Refine returns a handler for POST /api/v1/refine.
//
// Flow:
//  1. Parse & validate RefineRequest, apply defaults.
//  2. op=clean: LLM boilerplate removal; documents longer than one segment
//     are split on paragraph boundaries and cleaned piecewise.
//  3. op=chunk: LLM sectioning into self-contained chunks.
//  4. Assemble response with token estimates and timing.
//
// Both operations degrade to their non-LLM fallback when no provider is
// configured; Refined reports which path was taken.
func Refine(llmClient *llm.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.RefineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.RefineResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		resp := models.RefineResponse{Success: true}

		// ── 2/3. Refine ─────────────────────────────────────────────
		llmStart := time.Now()
		switch req.Op {
		case "chunk":
			chunks, refined := llmClient.Chunk(c.Request.Context(), req.Content)
			resp.Chunks = chunks
			resp.Refined = refined
			resp.Tokens = tokenEstimates(req.Content, strings.Join(chunks, "\n\n"))
		default: // "clean"
			content, refined := cleanLongText(c.Request.Context(), llmClient, req.Content)
			resp.Content = content
			resp.Refined = refined
			resp.Tokens = tokenEstimates(req.Content, content)
		}
		llmMs := time.Since(llmStart).Milliseconds()

		// ── 4. Timing and respond ───────────────────────────────────
		resp.Timing = models.RefineTimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			LLMMs:   llmMs,
		}

		c.JSON(http.StatusOK, resp)
	}
}

// cleanLongText runs the LLM cleaner over text, splitting anything larger
// than one segment into paragraph-aligned pieces first. Refined is true
// only when every segment was transformed; a partial fallback keeps the
// raw segments in place so the document stays whole.
func cleanLongText(ctx context.Context, llmClient *llm.Client, text string) (string, bool) {
	if len(text) <= cleaner.DefaultSplitSize {
		return llmClient.Clean(ctx, text)
	}

	segments := cleaner.SplitText(text, cleaner.DefaultSplitSize)
	cleaned := make([]string, 0, len(segments))
	refined := true
	for _, seg := range segments {
		out, ok := llmClient.Clean(ctx, seg)
		if !ok {
			refined = false
		}
		cleaned = append(cleaned, out)
	}
	return strings.Join(cleaned, "\n\n"), refined
}

// tokenEstimates builds the before/after token report for a refinement.
func tokenEstimates(original, result string) models.TokenInfo {
	originalTokens := cleaner.EstimateTokens(original)
	cleanedTokens := cleaner.EstimateTokens(result)

	savingsPercent := 0.0
	if originalTokens > 0 {
		savingsPercent = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
		savingsPercent = math.Round(savingsPercent*100) / 100
	}

	return models.TokenInfo{
		OriginalEstimate: originalTokens,
		CleanedEstimate:  cleanedTokens,
		SavingsPercent:   savingsPercent,
	}
}
