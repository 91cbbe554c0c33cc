package importer

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractLeadImageURL はHTML本文から最初のimg要素のsrcを返す。
// http/https以外のスキーム（data:等）は対象外。見つからない場合は空文字列を返す。
func ExtractLeadImageURL(htmlBody string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlBody))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "img" || !hasAttr {
				continue
			}

			for {
				key, val, more := tokenizer.TagAttr()
				if strings.ToLower(string(key)) == "src" {
					src := strings.TrimSpace(string(val))
					if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
						return src
					}
				}
				if !more {
					break
				}
			}
		}
	}
}
