package llm

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Language
	}{
		{"plain english", "How many vacation days do I have left?", LanguageEnglish},
		{"plain arabic", "كم عدد أيام الإجازة المتبقية لدي؟", LanguageArabic},
		{"mixed mostly arabic", "مرحبا كيف حالك اليوم يا صديقي في هذا", LanguageArabic},
		{"mixed mostly english", "hello صباح الخير how are you today my friend", LanguageEnglish},
		{"empty string", "", LanguageEnglish},
		{"digits and punctuation only", "12345!!! ...", LanguageEnglish},
	}

	for _, tt := range tests {
		if got := DetectLanguage(tt.in); got != tt.want {
			t.Errorf("%s: DetectLanguage(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}
