package wordcloud

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHTML(t *testing.T) {
	cloud := []PlacedWord{{
		MeasuredWord: MeasuredWord{
			WordCount: WordCount{Text: "a&b", Count: 3},
			Percent:   0.46,
			FontSize:  14.6,
			Width:     20,
			Height:    10,
		},
		X: 2,
		Y: -3,
	}}

	want := `<div class="word-cloud-label word-cloud-label-50" ` +
		`style="font-size:14.6px;left:120px;top:120px;width:20px;height:10px" ` +
		`data-word="a&amp;b">a&amp;b</div>`
	assert.Equal(t, want, RenderHTML(cloud, ""))
}

func TestRenderHTML_Highlight(t *testing.T) {
	cloud := []PlacedWord{
		{MeasuredWord: MeasuredWord{WordCount: WordCount{Text: "taxi"}, Percent: 1}},
		{MeasuredWord: MeasuredWord{WordCount: WordCount{Text: "bus"}}},
	}
	out := RenderHTML(cloud, "taxi")
	assert.Contains(t, out, `class="word-cloud-label word-cloud-label-100 highlight"`)
	assert.Contains(t, out, `class="word-cloud-label word-cloud-label-0"`)
	assert.Equal(t, 2, strings.Count(out, "<div "))
}

func TestRenderHTML_Empty(t *testing.T) {
	assert.Empty(t, RenderHTML(nil, "taxi"))
}
