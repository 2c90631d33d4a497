package handshake

import (
	"html"
	"strings"
)

// shimPage posts the query and the URL fragment, which browsers never send,
// back to the callback endpoint.
const shimPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>Signing you in…</title>
</head>
<body style="padding:20px;font-family:system-ui">
<p>Signing you in…</p>
<form id="cb" method="post" action="/auth/cb">
<input type="hidden" name="query" value="{{query}}">
<input type="hidden" name="fragment" id="fragment">
<noscript><button type="submit">Continue</button></noscript>
</form>
<script>
document.getElementById('fragment').value = window.location.hash.replace(/^#/, '');
document.getElementById('cb').submit();
</script>
</body>
</html>
`

func renderShim(rawQuery string) string {
	return strings.Replace(shimPage, "{{query}}", html.EscapeString(rawQuery), 1)
}
