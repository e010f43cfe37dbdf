package dispatch

import "strings"

// NormalizePhone は携帯番号を国際形式に正規化する。
//
// 空白・ハイフン・括弧を取り除いたうえで、
//   - すでに"+"で始まる番号はそのまま返す
//   - 先頭の"0"は国際プレフィックスに置き換える
//   - それ以外は国際プレフィックスを前置する
//
// 正規化は送信処理の中で一度だけ行い、呼び出し側には重複させない。
func NormalizePhone(number, countryCode string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(number))

	if cleaned == "" {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "0") {
		return countryCode + cleaned[1:]
	}
	return countryCode + cleaned
}
