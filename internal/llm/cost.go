package llm

import "strings"

// pricing is USD per million input and output tokens
type pricing struct {
	input  float64
	output float64
}

// Longest prefix wins, so dated model names match their family
var modelPricing = map[string]pricing{
	"gpt-4o-mini":       {0.15, 0.60},
	"gpt-4o":            {2.50, 10.00},
	"gpt-4.1-mini":      {0.40, 1.60},
	"gpt-4.1":           {2.00, 8.00},
	"claude-3-5-haiku":  {0.80, 4.00},
	"claude-3-5-sonnet": {3.00, 15.00},
	"claude-3-7-sonnet": {3.00, 15.00},
	"claude-sonnet-4":   {3.00, 15.00},
}

// EstimateCost returns the USD cost of a call. Unknown and local models cost 0.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookupPricing(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.input + float64(outputTokens)*p.output) / 1_000_000
}

func lookupPricing(model string) (pricing, bool) {
	model = strings.ToLower(model)
	best, found, bestLen := pricing{}, false, 0
	for prefix, p := range modelPricing {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, found, bestLen = p, true, len(prefix)
		}
	}
	return best, found
}
