package statusapi

const statusPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>chanflow status</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --yellow: #d29922;
    --red: #f85149;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    padding: 20px;
  }
  h1 { font-size: 18px; margin-bottom: 4px; }
  .meta { color: var(--text-dim); font-size: 12px; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); }
  th { color: var(--text-dim); font-weight: 500; font-size: 12px; text-transform: uppercase; }
  .state-idle { color: var(--green); }
  .state-running { color: var(--accent); }
  .state-failed, .state-stopped { color: var(--red); }
  .state-starting, .state-stopping { color: var(--yellow); }
  .msg-from { color: var(--accent); font-weight: 600; }
  .msg-kind { color: var(--text-dim); font-size: 11px; }
  pre { white-space: pre-wrap; word-break: break-word; font-family: inherit; }
</style>
</head>
<body>
<h1>chanflow <span id="workflow-name"></span></h1>
<div class="meta" id="meta"></div>

<h2>Controllers</h2>
<table id="controllers"><thead><tr><th>Agent</th><th>State</th><th>Retry</th><th>Task</th></tr></thead><tbody></tbody></table>

<h2>Channel (latest first)</h2>
<table id="channel"><thead><tr><th>From</th><th>To</th><th>Kind</th><th>Content</th><th>Time</th></tr></thead><tbody></tbody></table>

<script>
async function refresh() {
  const res = await fetch('/status/api');
  const snap = await res.json();
  document.getElementById('workflow-name').textContent = snap.workflow || '';
  document.getElementById('meta').textContent =
    (snap.ephemeral ? 'ephemeral' : 'bound') + ' · refreshed ' + snap.timestamp;

  const cBody = document.querySelector('#controllers tbody');
  cBody.innerHTML = '';
  for (const c of (snap.controllers || [])) {
    const tr = document.createElement('tr');
    tr.innerHTML =
      '<td>' + c.name + '</td>' +
      '<td class="state-' + c.state + '">' + c.state + '</td>' +
      '<td>' + (c.retryAttempt || '') + '</td>' +
      '<td>' + (c.task || '') + '</td>';
    cBody.appendChild(tr);
  }

  const mBody = document.querySelector('#channel tbody');
  mBody.innerHTML = '';
  const msgs = (snap.channel || []).slice().reverse();
  for (const m of msgs) {
    const tr = document.createElement('tr');
    tr.innerHTML =
      '<td class="msg-from">' + m.from + '</td>' +
      '<td>' + (m.to || '') + '</td>' +
      '<td class="msg-kind">' + (m.kind || 'message') + '</td>' +
      '<td><pre></pre></td>' +
      '<td>' + m.timestamp + '</td>';
    tr.querySelector('pre').textContent = m.content;
    mBody.appendChild(tr);
  }
}
refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>
`
