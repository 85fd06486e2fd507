package llm

import "fmt"

const systemPrompt = "You are a careful proofreader of OCR output from historical Arabic cinema magazines. You answer with JSON only."

// BuildPrompt constructs the default correction prompt for a page of text
func BuildPrompt(text string) string {
	return fmt.Sprintf(`The following text was produced by OCR from a scanned page of a historical Arabic cinema magazine.
Identify OCR errors in it.

CRITICAL RULES:
1. Only report an error when you are highly confident. The language is archaic; unusual spellings of the period are NOT errors.
2. "original" must be copied exactly from the text, and "position" must give its character offsets [start, end) in the text.
3. Email addresses and URLs that the OCR picked up from advertisements must be reported with an empty "corrected" value so they can be removed. Never rewrite them.
4. Do not rephrase, modernize or translate anything.
5. Formatting changes (title, paragraph, quote, section_break) are suggestions only.

Answer with a single JSON object of this shape and nothing else:
{
  "corrections": [
    {"id": "1", "type": "ocr_error|spelling|formatting", "original": "...", "corrected": "...",
     "reason": "...", "position": {"start": 0, "end": 0}, "confidence": 0.0}
  ],
  "formattingChanges": [
    {"id": "1", "type": "title|paragraph|quote|section_break", "text": "...",
     "position": {"start": 0, "end": 0}, "suggestion": "..."}
  ],
  "correctedText": "the full text with your corrections applied",
  "confidence": 0.0
}

Text:
%s`, text)
}
