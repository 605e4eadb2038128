package i18n

import (
	"context"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("EN-gb") != "en" {
		t.Fatalf("expected en for EN-gb")
	}
	if DetectLanguage("fr-FR,ja;q=0.8") != "ja" {
		t.Fatalf("expected ja as first supported")
	}
	if DetectLanguage("") != "ja" {
		t.Fatalf("expected default ja")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("ja", "permission_denied") != "権限がありません" {
		t.Fatalf("expected 権限がありません")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to ja translation
	if T("es", "self_delete") != "自分自身を削除することはできません" {
		t.Fatalf("expected ja fallback for es lang")
	}
	if got := Tf("ja", "error_occurred", "disk full"); got != "エラーが発生しました: disk full" {
		t.Fatalf("unexpected Tf result %q", got)
	}
}

func TestLangContext(t *testing.T) {
	if LangFromContext(context.Background()) != DefaultLang {
		t.Fatalf("expected default lang")
	}
	if LangFromContext(WithLang(context.Background(), "en")) != "en" {
		t.Fatalf("expected en from context")
	}
}
