package httpapi

import (
	"html/template"
	"net/http"
)

var publicPageT = template.Must(template.New("public").Parse(publicLayout))

type publicPageData struct {
	Title string
	Body  template.HTML
}

func (a *api) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	renderPublicPage(w, http.StatusOK, "ASPForum", publicHomeBody)
}

func renderPublicPage(w http.ResponseWriter, status int, title string, body template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = publicPageT.Execute(w, publicPageData{
		Title: title,
		Body:  body,
	})
}

const publicLayout = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>{{.Title}}</title>
    <style>
      body{margin:0;font-family:"Helvetica Neue",Arial,sans-serif;background:#f4f5f7;color:#1f2933}
      header{padding:20px clamp(20px,4vw,64px);background:#1f2933;color:#f8fafc}
      main{max-width:860px;margin:0 auto;padding:32px clamp(20px,4vw,64px)}
      .card{background:#ffffff;border:1px solid #d9dee5;border-radius:10px;padding:24px;margin-bottom:16px}
      h1{margin:0 0 8px}
      .muted{color:#52606d;line-height:1.6}
      footer{color:#52606d;font-size:13px;padding:16px 0}
    </style>
  </head>
  <body>
    <header><strong>ASPForum</strong></header>
    <main>
      {{.Body}}
      <footer>ASPForum discussion platform.</footer>
    </main>
  </body>
</html>`

var publicHomeBody = template.HTML(`
<div class="card">
  <h1>ASPForum</h1>
  <p class="muted">Account, moderation and private-message backend for the forum. Clients talk to the JSON API under <code>/v1/</code>.</p>
</div>
`)
