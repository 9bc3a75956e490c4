package extract

import (
	"fmt"
	"html"
)

// renderArticle lays out an article the same way for every rule: a heading,
// a grey byline and the body markup.
func renderArticle(title, author, body string) string {
	return fmt.Sprintf(`
<h1>%s</h1>
<div style="color:grey">by %s</div><br/>
%s`, html.EscapeString(title), html.EscapeString(author), body)
}
