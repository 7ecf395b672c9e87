package wordcloud

import (
	"html"
	"strconv"
	"strings"
)

// RenderHTML renders one absolutely positioned label per placed word. The
// word equal to highlight carries the highlight class.
func RenderHTML(cloud []PlacedWord, highlight string) string {
	var sb strings.Builder
	for _, w := range cloud {
		text := html.EscapeString(w.Text)

		sb.WriteString(`<div class="word-cloud-label word-cloud-label-`)
		sb.WriteString(strconv.Itoa(w.Bucket()))
		if highlight != "" && w.Text == highlight {
			sb.WriteString(" highlight")
		}
		sb.WriteString(`" style="`)
		sb.WriteString("font-size:" + px(w.FontSize))
		sb.WriteString(";left:" + px(HalfSize+w.X-w.Width/2))
		sb.WriteString(";top:" + px(HalfSize+w.Y-w.Height/2))
		sb.WriteString(";width:" + px(w.Width))
		sb.WriteString(";height:" + px(w.Height))
		sb.WriteString(`" data-word="`)
		sb.WriteString(text)
		sb.WriteString(`">`)
		sb.WriteString(text)
		sb.WriteString("</div>")
	}
	return sb.String()
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
