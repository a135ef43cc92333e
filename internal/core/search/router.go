package search

import "regexp"

// RouteKind はクエリの分類結果を表す
type RouteKind string

const (
	// RouteCode は規程コードの直接参照クエリ
	RouteCode RouteKind = "code_pattern"
	// RouteMetadata は官報メタデータ（R.G. / A.E. / EK / 日付）参照クエリ
	RouteMetadata RouteKind = "metadata_pattern"
	// RouteNaturalLanguage は自然文クエリ（ベクトル＋字句の両経路）
	RouteNaturalLanguage RouteKind = "natural_language"
)

// Route は分類結果と抽出トークンを表す
type Route struct {
	Kind    RouteKind `json:"kind"`
	Matched string    `json:"matched"` // 検出した規程コードまたはメタデータトークン（自然文では空）
}

var (
	// "section 5.1.2" / "bölüm 6" / "madde 12.3" の形式
	sectionPattern = regexp.MustCompile(`(?i)\b(?:section|bölüm|madde)\s*(\d+(?:\.\d+)*)\b`)
	// 単独のドット区切りコード（"5.1.2" 等、2階層以上のもの）
	codePattern = regexp.MustCompile(`\b(\d+(?:\.\d+)+)\b`)
	// 官報番号: "R.G. 62" / "RG 62"
	rgPattern = regexp.MustCompile(`(?i)\bR\.?G\.?\s*(\d+)\b`)
	// 決定番号: "A.E. 15" / "AE 15"
	aePattern = regexp.MustCompile(`(?i)\bA\.?E\.?\s*(\d+)\b`)
	// 附則: "EK III"
	ekPattern = regexp.MustCompile(`(?i)\bEK\s+([IVXLCDM]+)\b`)
	// 日付: "21.06.2024"
	datePattern = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
)

// RouteQuery はクエリ文字列を決定的に分類する純粋関数。
// 検出順序: (1) 規程コード → (2) メタデータマーカー → (3) 自然文。
// 空・不正入力のバリデーションは呼び出し側（ワークフロー先頭）で済んでいる前提。
func RouteQuery(query string) Route {
	if m := sectionPattern.FindStringSubmatch(query); m != nil {
		return Route{Kind: RouteCode, Matched: m[1]}
	}
	// 日付もドット区切り数字なので、日付形式に一致するトークンはコード判定から除く
	for _, m := range codePattern.FindAllStringSubmatch(query, -1) {
		if !datePattern.MatchString(m[1]) {
			return Route{Kind: RouteCode, Matched: m[1]}
		}
	}

	if m := rgPattern.FindStringSubmatch(query); m != nil {
		return Route{Kind: RouteMetadata, Matched: m[1]}
	}
	if m := aePattern.FindStringSubmatch(query); m != nil {
		return Route{Kind: RouteMetadata, Matched: m[1]}
	}
	if m := ekPattern.FindStringSubmatch(query); m != nil {
		return Route{Kind: RouteMetadata, Matched: m[1]}
	}
	if m := datePattern.FindString(query); m != "" {
		return Route{Kind: RouteMetadata, Matched: m}
	}

	return Route{Kind: RouteNaturalLanguage}
}
