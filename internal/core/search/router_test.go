package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteQuery_CodePattern(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		matched string
	}{
		{name: "英語のsection参照", query: "What does section 5.1.2 say?", matched: "5.1.2"},
		{name: "トルコ語のbölüm参照", query: "bölüm 6 ne diyor?", matched: "6"},
		{name: "madde参照", query: "madde 12.3 hakkında bilgi", matched: "12.3"},
		{name: "単独のドット区切りコード", query: "5.1.2 требования", matched: "5.1.2"},
		{name: "文中のコード", query: "Is 7.2.1 still in effect?", matched: "7.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := RouteQuery(tt.query)
			assert.Equal(t, RouteCode, route.Kind)
			assert.Equal(t, tt.matched, route.Matched)
		})
	}
}

func TestRouteQuery_MetadataPattern(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		matched string
	}{
		{name: "官報番号", query: "R.G. 62 ek değişikliği", matched: "62"},
		{name: "ドットなし官報番号", query: "RG 62 ile yayımlanan", matched: "62"},
		{name: "決定番号", query: "A.E. 15 kararı nedir?", matched: "15"},
		{name: "附則ローマ数字", query: "EK III ne içeriyor?", matched: "III"},
		{name: "日付", query: "21.06.2024 tarihli değişiklik", matched: "21.06.2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := RouteQuery(tt.query)
			assert.Equal(t, RouteMetadata, route.Kind)
			assert.Equal(t, tt.matched, route.Matched)
		})
	}
}

func TestRouteQuery_NaturalLanguage(t *testing.T) {
	queries := []string{
		"What are the graduation requirements?",
		"Mezuniyet için kaç kredi gerekli?",
		"How do I appeal a grade?",
	}

	for _, q := range queries {
		route := RouteQuery(q)
		assert.Equal(t, RouteNaturalLanguage, route.Kind, q)
		assert.Empty(t, route.Matched)
	}
}

// 日付はドット区切り数字でもコードとして扱わない
func TestRouteQuery_DateIsNotACode(t *testing.T) {
	route := RouteQuery("01.09.2023 itibariyle geçerli mi?")
	assert.Equal(t, RouteMetadata, route.Kind)
	assert.Equal(t, "01.09.2023", route.Matched)
}

func TestRouteQuery_CodeTakesPrecedenceOverMetadata(t *testing.T) {
	route := RouteQuery("section 5.1 ve R.G. 62")
	assert.Equal(t, RouteCode, route.Kind)
	assert.Equal(t, "5.1", route.Matched)
}

func TestRouteQuery_Deterministic(t *testing.T) {
	query := "What does section 5.1.2 say?"
	first := RouteQuery(query)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RouteQuery(query))
	}
}
