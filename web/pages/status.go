// Package pages renders the HTML served by the local UI server.
package pages

import "github.com/rohanthewiz/element"

// StatusPage is the landing view: connectivity state, queue depth, and the
// cached lists. It is a thin window into the local API — the shell's real
// UI talks to the JSON endpoints directly.
type StatusPage struct {
	Title string
}

// NewStatusPage creates a status page instance
func NewStatusPage() StatusPage {
	return StatusPage{Title: "ListPad"}
}

// Render generates the complete HTML for the status page
func (p StatusPage) Render() string {
	b := element.NewBuilder()

	b.Html("lang", "en").R(
		p.renderHead(b),
		p.renderBody(b),
	)

	return b.String()
}

func (p StatusPage) renderHead(b *element.Builder) any {
	return b.Head().R(
		b.Meta("charset", "UTF-8"),
		b.Meta("name", "viewport", "content", "width=device-width, initial-scale=1.0"),
		b.Title().T(p.Title),
		b.Style().T(pageCSS),
	)
}

func (p StatusPage) renderBody(b *element.Builder) any {
	return b.Body().R(
		b.Div("class", "app-container").R(
			b.Header("class", "toolbar").R(
				b.H1().T(p.Title),
				b.Button("id", "sync-now", "class", "btn").T("Sync Now"),
			),
			element.RenderComponents(b, SyncBar{}),
			b.Main("class", "content").R(
				b.Div("id", "lists", "class", "list-grid").R(
					// Populated by the script below from /api/v1/lists
				),
			),
		),
		b.Script().T(pageJS),
	)
}

// SyncBar shows connectivity and queue depth, refreshed by the page script.
type SyncBar struct{}

// Render implements the element.Component interface
func (s SyncBar) Render(b *element.Builder) any {
	b.Div("class", "sync-bar").R(
		b.Span("id", "conn-dot", "class", "dot offline").T(""),
		b.Span("id", "conn-text").T("Checking..."),
		b.Span("id", "pending-text", "class", "pending").T(""),
	)
	return nil
}

const pageCSS = `
body { margin: 0; font-family: system-ui, sans-serif; background: #f4f4f0; color: #222; }
.toolbar { display: flex; justify-content: space-between; align-items: center; padding: 0.5rem 1rem; background: #2c3e50; color: #fff; }
.toolbar h1 { font-size: 1.1rem; margin: 0; }
.btn { padding: 0.3rem 0.8rem; border: none; border-radius: 4px; background: #3498db; color: #fff; cursor: pointer; }
.sync-bar { display: flex; gap: 0.6rem; align-items: center; padding: 0.4rem 1rem; background: #ecf0f1; font-size: 0.85rem; }
.dot { width: 10px; height: 10px; border-radius: 50%; display: inline-block; }
.dot.online { background: #27ae60; }
.dot.offline { background: #c0392b; }
.pending { color: #7f8c8d; }
.content { padding: 1rem; }
.list-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 0.8rem; }
.list-card { background: #fff; border-radius: 6px; padding: 0.8rem; border-left: 5px solid #ccc; }
.list-card.pending-id { opacity: 0.7; }
.list-card h3 { margin: 0 0 0.4rem; font-size: 1rem; }
.list-card .meta { font-size: 0.75rem; color: #95a5a6; }
`

const pageJS = `
async function refresh() {
  const statusRes = await fetch('/api/v1/sync/status');
  const status = (await statusRes.json()).data || {};
  const dot = document.getElementById('conn-dot');
  dot.className = 'dot ' + (status.online ? 'online' : 'offline');
  document.getElementById('conn-text').textContent = status.online ? 'Online' : 'Offline';
  const pending = status.pending;
  document.getElementById('pending-text').textContent =
    (pending === undefined || pending < 0) ? '' : pending + ' queued';

  const listsRes = await fetch('/api/v1/lists');
  const lists = (await listsRes.json()).data || [];
  const container = document.getElementById('lists');
  container.innerHTML = '';
  for (const l of lists) {
    const card = document.createElement('div');
    card.className = 'list-card' + (l.id < 0 ? ' pending-id' : '');
    card.style.borderLeftColor = l.color;
    const done = (l.todos || []).filter(t => t.done).length;
    card.innerHTML = '<h3></h3><div class="meta"></div>';
    card.querySelector('h3').textContent = l.name;
    card.querySelector('.meta').textContent =
      done + '/' + (l.todos || []).length + ' done' + (l.id < 0 ? ' (not yet synced)' : '');
    container.appendChild(card);
  }
}

document.getElementById('sync-now').addEventListener('click', async () => {
  await fetch('/api/v1/sync/now', { method: 'POST' });
  refresh();
});

refresh();
setInterval(refresh, 10000);
`
