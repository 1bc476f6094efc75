package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// newMarkdownConverter builds the shared html-to-markdown converter. The
// converter is goroutine-safe, so one instance serves every request.
//
// base drops script/style/head noise, commonmark renders standard Markdown,
// and the table plugin keeps tabular structure intact. Minimal cell padding
// skips column alignment, which trims the token cost of wide tables.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown renders cleaned HTML as Markdown. domain resolves relative
// hrefs and image sources in the output to absolute URLs.
func ToMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
