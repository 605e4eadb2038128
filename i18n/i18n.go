// Package i18n holds the user-facing message catalog.
package i18n

import (
	"context"
	"fmt"
	"strings"
)

// DefaultLang is used when no supported language is requested.
const DefaultLang = "ja"

type ctxKey struct{}

var catalog = map[string]map[string]string{
	"ja": {
		"required":           "必須項目です",
		"too_long":           "長すぎます",
		"invalid_format":     "形式が正しくありません",
		"invalid_email":      "メールアドレスの形式が正しくありません",
		"must_be_positive":   "正の数を入力してください",
		"invalid_role":       "ユーザー種別が正しくありません",
		"permission_denied":  "権限がありません",
		"admin_denied":       "管理画面へのアクセス権限がありません。",
		"login_success":      "ログインに成功しました。",
		"login_inactive":     "このアカウントは無効です。",
		"login_invalid":      "ユーザー名またはパスワードが正しくありません。",
		"login_missing":      "ユーザー名とパスワードを入力してください。",
		"login_rate_limited": "ログイン試行回数が上限に達しました。しばらくしてから再度お試しください。",
		"logout_success":     "ログアウトしました。",
		"company_added":      "取引先会社を追加しました",
		"company_deleted":    "取引先会社を削除しました",
		"company_code_taken": "この会社コードは既に使用されています",
		"company_not_found":  "会社コードが見つかりません",
		"item_added":         "請求書項目を追加しました",
		"item_deleted":       "請求書項目を削除しました",
		"user_added":         "ユーザーを追加しました",
		"user_deleted":       "ユーザーを削除しました",
		"username_taken":     "このユーザー名は既に使用されています",
		"self_delete":        "自分自身を削除することはできません",
		"self_role_change":   "自分自身のユーザー種別は変更できません",
		"role_changed":       "ユーザー種別を変更しました",
		"not_found":          "対象が見つかりません",
		"invoice_created":    "請求書を作成しました。",
		"template_missing":   "テンプレートファイルが見つかりません。",
		"history_exported":   "取引履歴を出力しました。",
		"history_not_found":  "該当する取引履歴が見つかりません。",
		"error_occurred":     "エラーが発生しました: %s",
		"role_general":       "一般",
		"role_manager":       "管理者",
		"role_director":      "責任者",
	},
	"en": {
		"required":           "Required",
		"too_long":           "Too long",
		"invalid_format":     "Invalid format",
		"invalid_email":      "Invalid email address",
		"must_be_positive":   "Must be positive",
		"invalid_role":       "Invalid role",
		"permission_denied":  "Permission denied",
		"admin_denied":       "You do not have access to the admin area.",
		"login_success":      "Signed in.",
		"login_inactive":     "This account is disabled.",
		"login_invalid":      "Invalid username or password.",
		"login_missing":      "Enter your username and password.",
		"login_rate_limited": "Too many login attempts. Try again later.",
		"logout_success":     "Signed out.",
		"company_added":      "Company added",
		"company_deleted":    "Company deleted",
		"company_code_taken": "This company code is already in use",
		"company_not_found":  "Company code not found",
		"item_added":         "Line item added",
		"item_deleted":       "Line item deleted",
		"user_added":         "User added",
		"user_deleted":       "User deleted",
		"username_taken":     "This username is already in use",
		"self_delete":        "You cannot delete yourself",
		"self_role_change":   "You cannot change your own role",
		"role_changed":       "Role changed",
		"not_found":          "Not found",
		"invoice_created":    "Invoice created.",
		"template_missing":   "Template file not found.",
		"history_exported":   "History exported.",
		"history_not_found":  "No transactions found for that period.",
		"error_occurred":     "An error occurred: %s",
		"role_general":       "General",
		"role_manager":       "Manager",
		"role_director":      "Director",
	},
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// DetectLanguage picks the first supported language from an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(base) {
			return base
		}
	}
	return DefaultLang
}

// T translates code, falling back to the default language and then to the code itself.
func T(lang, code string) string {
	if msg, ok := catalog[lang][code]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLang][code]; ok {
		return msg
	}
	return code
}

// Tf translates code and formats it with args.
func Tf(lang, code string, args ...any) string {
	return fmt.Sprintf(T(lang, code), args...)
}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFromContext returns the request language or DefaultLang.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
