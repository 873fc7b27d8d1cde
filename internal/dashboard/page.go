package dashboard

// pageTemplate is the single-file dashboard page. It polls the JSON API for
// tables and subscribes to the websocket feed for the summary header.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>reqlens</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1400px; margin: 0 auto; }
        h1 { font-size: 22px; margin-bottom: 16px; }
        h2 { font-size: 16px; margin: 24px 0 8px; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 12px; }
        .card {
            background: white; border-radius: 8px; padding: 14px;
            box-shadow: 0 1px 3px rgba(0,0,0,0.08);
        }
        .card .label { font-size: 12px; color: #7f8c8d; text-transform: uppercase; }
        .card .value { font-size: 22px; font-weight: 600; }
        table { width: 100%; border-collapse: collapse; background: white; border-radius: 8px; overflow: hidden; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #ecf0f1; font-size: 13px; }
        th { background: #34495e; color: white; cursor: pointer; user-select: none; }
        tr:hover { background: #f8fafc; }
        .controls { margin: 8px 0; display: flex; gap: 8px; align-items: center; }
        .controls input { padding: 6px 10px; border: 1px solid #d5dbdb; border-radius: 6px; }
        .controls button { padding: 6px 12px; border: none; border-radius: 6px; background: #34495e; color: white; cursor: pointer; }
        .status-5xx { color: #c0392b; font-weight: 600; }
        .status-4xx { color: #d35400; }
        .muted { color: #95a5a6; }
    </style>
</head>
<body>
<div class="container">
    <h1>reqlens &mdash; live request profile</h1>

    <div class="cards" id="summary-cards">
        <div class="card"><div class="label">Requests</div><div class="value" id="sum-count">&ndash;</div></div>
        <div class="card"><div class="label">Endpoints</div><div class="value" id="sum-endpoints">&ndash;</div></div>
        <div class="card"><div class="label">Mean</div><div class="value" id="sum-mean">&ndash;</div></div>
        <div class="card"><div class="label">P50</div><div class="value" id="sum-p50">&ndash;</div></div>
        <div class="card"><div class="label">P95</div><div class="value" id="sum-p95">&ndash;</div></div>
        <div class="card"><div class="label">P99</div><div class="value" id="sum-p99">&ndash;</div></div>
        <div class="card"><div class="label">RPS</div><div class="value" id="sum-rps">&ndash;</div></div>
    </div>

    <h2>Endpoints</h2>
    <div class="controls">
        <input type="text" id="endpoint-search" placeholder="filter method or path">
        <button onclick="loadEndpoints()">Refresh</button>
    </div>
    <table id="endpoint-table">
        <thead><tr>
            <th data-sort="method">Method</th>
            <th data-sort="path">Path</th>
            <th data-sort="count">Count</th>
            <th data-sort="avg">Avg (ms)</th>
            <th data-sort="min">Min (ms)</th>
            <th data-sort="max">Max (ms)</th>
            <th data-sort="p95">P95 (ms)</th>
            <th>Failures</th>
        </tr></thead>
        <tbody><tr><td colspan="8" class="muted">No data yet</td></tr></tbody>
    </table>

    <h2>Recent requests</h2>
    <table id="recent-table">
        <thead><tr>
            <th>Time</th><th>Method</th><th>Path</th><th>Status</th><th>Duration (ms)</th>
        </tr></thead>
        <tbody><tr><td colspan="5" class="muted">No data yet</td></tr></tbody>
    </table>

    {{if .QueryMetrics}}
    <h2>Recent queries</h2>
    <table id="query-table">
        <thead><tr>
            <th>Time</th><th>Statement</th><th>Rows</th><th>Duration (ms)</th>
        </tr></thead>
        <tbody><tr><td colspan="4" class="muted">No data yet</td></tr></tbody>
    </table>
    {{end}}
</div>

<script>
    const base = {{.BasePath}} + "/api";
    let sortField = "avg", sortOrder = "desc";

    function ms(v) { return v == null ? "–" : v.toFixed(1); }

    function renderSummary(s) {
        document.getElementById("sum-count").textContent = s.count;
        document.getElementById("sum-endpoints").textContent = s.unique_endpoints;
        document.getElementById("sum-mean").textContent = ms(s.mean_ms);
        document.getElementById("sum-p50").textContent = ms(s.p50_ms);
        document.getElementById("sum-p95").textContent = ms(s.p95_ms);
        document.getElementById("sum-p99").textContent = ms(s.p99_ms);
        document.getElementById("sum-rps").textContent = s.requests_per_sec.toFixed(1);
    }

    async function loadEndpoints() {
        const search = encodeURIComponent(document.getElementById("endpoint-search").value);
        const resp = await fetch(base + "/endpoints?sort=" + sortField + "&order=" + sortOrder + "&limit=50&search=" + search);
        const data = await resp.json();
        const body = document.querySelector("#endpoint-table tbody");
        if (!data.rows || data.rows.length === 0) {
            body.innerHTML = '<tr><td colspan="8" class="muted">No data yet</td></tr>';
            return;
        }
        body.innerHTML = data.rows.map(r =>
            "<tr><td>" + r.method + "</td><td>" + r.path + "</td><td>" + r.count +
            "</td><td>" + ms(r.mean_ms) + "</td><td>" + ms(r.min_ms) + "</td><td>" + ms(r.max_ms) +
            "</td><td>" + ms(r.p95_ms) + "</td><td>" + r.failures + "</td></tr>").join("");
    }

    async function loadRecent() {
        const resp = await fetch(base + "/requests?limit=25");
        const data = await resp.json();
        const body = document.querySelector("#recent-table tbody");
        if (!data.rows || data.rows.length === 0) return;
        body.innerHTML = data.rows.map(r => {
            const cls = r.status >= 500 ? "status-5xx" : (r.status >= 400 ? "status-4xx" : "");
            return "<tr><td>" + new Date(r.start).toLocaleTimeString() + "</td><td>" + r.method +
                "</td><td>" + r.path + '</td><td class="' + cls + '">' + r.status +
                "</td><td>" + ms(r.duration_ms) + "</td></tr>";
        }).join("");
    }

    async function loadQueries() {
        const table = document.getElementById("query-table");
        if (!table) return;
        const resp = await fetch(base + "/queries?limit=25");
        const data = await resp.json();
        const body = table.querySelector("tbody");
        if (!data.rows || data.rows.length === 0) return;
        body.innerHTML = data.rows.map(q =>
            "<tr><td>" + new Date(q.start).toLocaleTimeString() + "</td><td>" + q.fingerprint +
            "</td><td>" + (q.rows < 0 ? "–" : q.rows) + "</td><td>" + ms(q.duration_ms) + "</td></tr>").join("");
    }

    document.querySelectorAll("#endpoint-table th[data-sort]").forEach(th => {
        th.addEventListener("click", () => {
            const field = th.dataset.sort;
            if (field === sortField) {
                sortOrder = sortOrder === "desc" ? "asc" : "desc";
            } else {
                sortField = field;
                sortOrder = "desc";
            }
            loadEndpoints();
        });
    });

    function connectLive() {
        const proto = location.protocol === "https:" ? "wss:" : "ws:";
        const ws = new WebSocket(proto + "//" + location.host + base + "/live");
        ws.onmessage = ev => renderSummary(JSON.parse(ev.data).summary);
        ws.onclose = () => setTimeout(connectLive, 3000);
    }

    connectLive();
    loadEndpoints();
    loadRecent();
    loadQueries();
    setInterval(() => { loadEndpoints(); loadRecent(); loadQueries(); }, 5000);
</script>
</body>
</html>
`
