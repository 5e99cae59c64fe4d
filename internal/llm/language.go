package llm

// Language is a detected natural language tag.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// isArabicRune covers the main Arabic Unicode block (U+0600–U+06FF) plus the
// Arabic Supplement and Presentation Forms blocks, so transliterated
// punctuation/diacritics don't dilute the ratio.
func isArabicRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0xFB50 && r <= 0xFDFF: // Arabic Presentation Forms-A
		return true
	case r >= 0xFE70 && r <= 0xFEFF: // Arabic Presentation Forms-B
		return true
	default:
		return false
	}
}

// isLetter reports whether r should count toward the letter total used as
// the ratio's denominator (spaces, digits, and punctuation are excluded so
// they don't dilute short strings).
func isLetter(r rune) bool {
	return isArabicRune(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= 0x00C0 && r <= 0x024F) // Latin-1 Supplement + Latin Extended-A/B, for accented text
}

// DetectLanguage classifies s as Arabic vs English by character-class
// ratio: more than 30% of letter codepoints in the Arabic block selects
// Arabic (spec.md §4.B). Strings with no letters at all default to English.
func DetectLanguage(s string) Language {
	var letters, arabic int
	for _, r := range s {
		if !isLetter(r) {
			continue
		}
		letters++
		if isArabicRune(r) {
			arabic++
		}
	}

	if letters == 0 {
		return LanguageEnglish
	}
	if float64(arabic)/float64(letters) > 0.30 {
		return LanguageArabic
	}
	return LanguageEnglish
}
