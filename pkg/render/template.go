package render

const pageHTML = `<!doctype html>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{esc .Title}}</title>
{{- with .Doc.Team.Favicon}}
<link rel="icon" href="{{esc .}}">
{{- end}}
<link href="https://fonts.googleapis.com/css2?family=Outfit:wght@300;400;600;800&display=swap" rel="stylesheet">
<style>
:root{
  --green:{{esc .Doc.Theme.Accent}};
  --dark:{{esc .Doc.Theme.Headline}};
  --light:{{esc .Doc.Theme.Background}};
  --line:#e6efe9;
  --radius:18px;
  --shadow:0 10px 30px rgba(0,0,0,.08);
  --text:{{esc .Doc.Theme.Text}};
  --card:{{esc .Doc.Theme.Card}};
  --foot:{{esc .Doc.Theme.FooterText}};
  --btnText:{{esc .Doc.Theme.ButtonText}};
  --headerBg:{{esc .Doc.Theme.HeaderBg}};
  --headerText:{{esc .Doc.Theme.HeaderText}};
}
*{box-sizing:border-box}
html,body{margin:0;background:var(--light);color:var(--text);font-family:"Outfit",system-ui,Segoe UI,Roboto,sans-serif}
a{color:var(--green);text-decoration:{{.LinkDecoration}}}
a:hover{text-decoration:underline}
.container{width:min(1100px,92vw);margin-inline:auto}
header{position:sticky;top:0;background:var(--headerBg);box-shadow:0 1px 0 rgba(0,0,0,.06);z-index:30;color:var(--headerText)}
.nav{display:flex;align-items:center;justify-content:space-between;padding:12px 0;color:var(--headerText)}
.brand{display:flex;align-items:center;gap:.7rem;font-weight:800}
.brand img,.brand svg{height:36px}
.brand span{color:var(--headerText)}
.btn{display:inline-flex;align-items:center;gap:.5rem;background:var(--green);color:var(--btnText);padding:.65rem .95rem;border-radius:12px;box-shadow:var(--shadow);font-weight:700;border:none}
.hero{background:linear-gradient(180deg,#ffffff,#f3faf6)}
.hero .container{display:grid;grid-template-columns:1.15fr .85fr;gap:2rem;align-items:center;padding:3.6rem 0}
.muted{opacity:.75}
section{padding:1.5rem 0}
.card{background:var(--card);border:1px solid var(--line);border-radius:var(--radius);box-shadow:var(--shadow);padding:1rem}
.card img{width:100%;max-height:180px;object-fit:cover;border-radius:12px}
.grid{display:grid;gap:1rem}
.cols-2{grid-template-columns:1fr 1fr}
.cols-3{grid-template-columns:repeat(3,1fr)}
.stat{font-size:1.6rem;font-weight:800;color:var(--green)}
.people{display:grid;grid-template-columns:repeat(4,1fr);gap:1rem}
.person{background:var(--card);border:1px solid var(--line);border-radius:16px;overflow:hidden;box-shadow:var(--shadow)}
.person img{width:100%;height:180px;object-fit:cover}
.person .info{padding:.8rem}
.tierHeading{text-align:center;margin:.4rem 0 .6rem;font-weight:800;color:#37574a}
.tierRow{margin-bottom:1rem}
.tierWrap{display:flex;flex-wrap:wrap;justify-content:center;gap:1rem}
.spCard{display:grid;place-items:center;background:var(--card);border:1px solid var(--line);border-radius:14px;height:72px;padding:6px;min-width:160px}
.spCard img{max-width:90%;max-height:54px}
footer{background:var(--dark);color:var(--foot);padding:2rem 0;margin-top:2rem}
@media (max-width:940px){
  .hero .container{grid-template-columns:1fr}
  .people{grid-template-columns:repeat(2,1fr)}
  .cols-2,.cols-3{grid-template-columns:1fr}
}
</style>

<header>
  <nav class="container nav">
    <div class="brand">
      {{- if .Doc.Team.Logo}}
      <img src="{{esc .Doc.Team.Logo}}" alt="Team Logo" style="border-radius:8px">
      {{- else}}
      <svg viewBox="0 0 64 64"><path fill="var(--green)" d="M8 38c0-9 8-16 22-16 9 0 12-5 15-10 2 0 3 1 4 3l3 8 6 3v10l-8 2v4c0 6-5 9-11 9H21C13 51 8 46 8 38Z"/></svg>
      {{- end}}
      <span>{{esc .Title}}</span>
    </div>
    <a class="btn" href="#contact">Contact</a>
  </nav>
</header>

<main id="main">
  <section class="hero">
    <div class="container">
      <div>
        <span class="muted">{{esc .Doc.Team.School}} {{with .Location}}• {{esc .}} {{end}}• FTC</span>
        <h1>{{esc .Doc.Team.Name}}{{with .Doc.Team.Number}} {{esc .}}{{end}}</h1>
        <div class="grid cols-3" style="margin-top:1rem">
          <div class="card"><div class="stat" id="years">{{.Years}}</div><div>Years Competing</div></div>
          <div class="card"><div class="stat">{{len .Doc.Members}}</div><div>Active Members</div></div>
          <div class="card"><div class="stat">∞</div><div>Iterations</div></div>
        </div>
      </div>
      {{- if .Doc.Team.Hero}}
      <img src="{{esc .Doc.Team.Hero}}" alt="Hero" style="width:100%;height:260px;object-fit:cover;border-radius:12px">
      {{- else}}
      <div class="card"><p>Hero image placeholder</p></div>
      {{- end}}
    </div>
  </section>

  <section id="about">
    <div class="container grid cols-2">
      <div class="card"><h2>About</h2>
        {{- with .Doc.Team.About}}<p>{{esc .}}</p>{{end}}
        <ul>
        {{- range .Doc.Links}}<li><a href="{{esc .Href}}"{{if .External}} target="_blank" rel="noopener"{{end}}>{{esc .Label}}</a></li>{{end -}}
        </ul>
      </div>
      <div class="card"><h2>Season</h2><ul>
        {{- range .Doc.Bullets}}<li>{{esc .}}</li>{{else}}<li>Updates coming soon…</li>{{end -}}
      </ul></div>
    </div>
  </section>
{{- if .Doc.Members}}

  <section id="team"><div class="container"><h2>Team</h2><div class="people">
    {{- range .Doc.Members}}
    <article class="person">
      {{- with .Img}}<img src="{{esc .}}">{{end}}
      <div class="info"><h3>{{esc .Name}}</h3><div class="role">{{esc .Role}}</div></div>
    </article>
    {{- end}}
  </div></div></section>
{{- end}}
{{- if .Doc.Outreach}}

  <section id="outreach"><div class="container"><h2>Outreach</h2><div class="grid cols-3">
    {{- range .Doc.Outreach}}
    <div class="card">{{with .Img}}<img src="{{esc .}}">{{end}}<h3>{{esc .Title}}</h3>{{with .Text}}<p>{{esc .}}</p>{{end}}</div>
    {{- end}}
  </div></div></section>
{{- end}}
{{- if .Doc.Resources}}

  <section id="resources"><div class="container"><h2>Resources</h2><div class="grid cols-3">
    {{- range .Doc.Resources}}
    <div class="card">{{with .Img}}<img src="{{esc .}}">{{end}}<h3>{{esc .Title}}</h3>{{with .Text}}<p>{{esc .}}</p>{{end}}</div>
    {{- end}}
  </div></div></section>
{{- end}}

  <section id="sponsors">
    <div class="container">
      <h2>Sponsors</h2>
      {{- $headings := .Doc.ShowTierHeadings}}
      {{- range .Tiers}}
      {{- if $headings}}
      <h3 class="tierHeading">{{.Name}}</h3>
      {{- end}}
      <div class="tierRow"><div class="tierWrap">
        {{- range .Sponsors}}
        <div class="spCard">{{if .Logo}}<img src="{{esc .Logo}}" alt="{{esc .Name}}">{{else}}{{esc .Name}}{{end}}</div>
        {{- end}}
      </div></div>
      {{- end}}
      {{- if .NoSponsors}}
      <p>Thanks to all our supporters!</p>
      {{- end}}
    </div>
  </section>
{{- if .Doc.Calendar.Enabled}}

  <section id="calendar"><div class="container"><div class="card"><h2>Calendar</h2><ul>
    {{- with .Doc.Calendar.GCal}}<li><a href="{{esc .}}" target="_blank" rel="noopener">Open in Google Calendar</a></li>{{end}}
    {{- with .Doc.Calendar.ICS}}<li><a href="{{esc .}}">Subscribe (iCal)</a></li>{{end -}}
  </ul>{{with .Doc.Calendar.TZ}}<p class="muted">Times shown in {{esc .}}</p>{{end}}</div></div></section>
{{- end}}
{{- if .Doc.Team.ContactEmail}}

  <section id="contact"><div class="container"><div class="card"><h2>Contact</h2>
    <p><a href="mailto:{{esc .Doc.Team.ContactEmail}}">{{esc .Doc.Team.ContactEmail}}</a></p>
  </div></div></section>
{{- end}}
</main>

<footer>
  <div class="container">© <span id="y"></span> {{esc .Doc.Team.Name}}</div>
</footer>

<script>
  document.getElementById("y").textContent = new Date().getFullYear();
  (function(){
    var founding = {{.Doc.Team.Founding}};
    if (founding) {
      var years = Math.max(1, new Date().getFullYear() - founding + 1);
      var el = document.getElementById("years");
      if (el) el.textContent = years;
    }
  })();
</script>
`
