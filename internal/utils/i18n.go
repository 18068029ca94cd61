package utils

// Server-side strings for the few messages the API renders itself.
// Questionnaire text lives in the recommendation rules.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":          "ok",
		"auth.disabled":      "authentication is disabled",
		"intake.incomplete":  "questionnaire incomplete",
		"import.done":        "clinic data replaced",
		"demo.done":          "demo data generated",
		"export.filename":    "brushlog-export.json",
		"roster.csvfilename": "brushlog-roster.csv",
	},
	"ja": {
		"health.ok":          "正常",
		"auth.disabled":      "認証は無効です",
		"intake.incomplete":  "質問票が完了していません",
		"import.done":        "クリニックデータを置き換えました",
		"demo.done":          "デモデータを生成しました",
		"export.filename":    "brushlog-export.json",
		"roster.csvfilename": "brushlog-roster.csv",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
