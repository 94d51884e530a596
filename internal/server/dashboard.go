package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Loanbook</title>
    <meta name="description" content="Loan portfolio management with ML credit risk scoring">
    <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>₹</text></svg>">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg: #09090b;
            --bg-subtle: #18181b;
            --border: #27272a;
            --text: #fafafa;
            --text-secondary: #a1a1aa;
            --text-tertiary: #52525b;
            --accent: #22c55e;
            --red: #ef4444;
            --amber: #f59e0b;
            --blue: #3b82f6;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
            background: var(--bg);
            color: var(--text);
            min-height: 100vh;
        }

        .container { max-width: 1100px; margin: 0 auto; padding: 24px; }

        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding-bottom: 24px;
            border-bottom: 1px solid var(--border);
        }

        header h1 { font-size: 20px; font-weight: 600; }
        header .live {
            font-size: 12px;
            color: var(--text-secondary);
        }
        header .live .dot {
            display: inline-block;
            width: 8px;
            height: 8px;
            border-radius: 50%;
            background: var(--text-tertiary);
            margin-right: 6px;
        }
        header .live.connected .dot { background: var(--accent); }

        .stats {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 16px;
            margin: 24px 0;
        }

        .stat {
            background: var(--bg-subtle);
            border: 1px solid var(--border);
            border-radius: 8px;
            padding: 16px;
        }

        .stat .label { font-size: 12px; color: var(--text-secondary); text-transform: uppercase; letter-spacing: 0.05em; }
        .stat .value { font-size: 28px; font-weight: 600; margin-top: 8px; font-variant-numeric: tabular-nums; }
        .stat .value.risk { color: var(--amber); }
        .stat .value.bad { color: var(--red); }
        .stat .value.good { color: var(--accent); }

        h2 { font-size: 14px; color: var(--text-secondary); margin: 24px 0 12px; text-transform: uppercase; letter-spacing: 0.05em; }

        .feed {
            background: var(--bg-subtle);
            border: 1px solid var(--border);
            border-radius: 8px;
            max-height: 400px;
            overflow-y: auto;
        }

        .feed .item {
            display: flex;
            justify-content: space-between;
            padding: 12px 16px;
            border-bottom: 1px solid var(--border);
            font-size: 13px;
        }
        .feed .item:last-child { border-bottom: none; }
        .feed .empty { padding: 32px; text-align: center; color: var(--text-tertiary); font-size: 13px; }

        .badge {
            font-size: 11px;
            padding: 2px 8px;
            border-radius: 4px;
            border: 1px solid var(--border);
            color: var(--text-secondary);
        }
        .badge.Approved { color: var(--accent); border-color: var(--accent); }
        .badge.Rejected { color: var(--red); border-color: var(--red); }
        .badge.Pending { color: var(--amber); border-color: var(--amber); }

        footer { margin-top: 32px; font-size: 12px; color: var(--text-tertiary); }
        footer a { color: var(--text-secondary); text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Loanbook</h1>
            <div class="live" id="live"><span class="dot"></span><span id="live-text">connecting</span></div>
        </header>

        <div class="stats">
            <div class="stat"><div class="label">Active Loans</div><div class="value" id="active-loans">–</div></div>
            <div class="stat"><div class="label">Total Outstanding</div><div class="value" id="outstanding">–</div></div>
            <div class="stat"><div class="label">NPA Ratio</div><div class="value risk" id="npa-ratio">–</div></div>
            <div class="stat"><div class="label">Default Rate</div><div class="value bad" id="default-rate">–</div></div>
            <div class="stat"><div class="label">Approval Rate</div><div class="value good" id="approval-rate">–</div></div>
        </div>

        <h2>Live Events</h2>
        <div class="feed" id="feed"><div class="empty">Waiting for loan activity…</div></div>

        <footer>API at <a href="/api">/api</a> · Metrics at <a href="/metrics">/metrics</a></footer>
    </div>

    <script>
        const inr = new Intl.NumberFormat('en-IN', { style: 'currency', currency: 'INR', maximumFractionDigits: 0 });

        async function loadSummary() {
            try {
                const res = await fetch('/v1/portfolio/summary');
                if (!res.ok) return;
                const s = await res.json();
                document.getElementById('active-loans').textContent = s.loan_statistics.active_loans;
                document.getElementById('outstanding').textContent = inr.format(s.financial_metrics.total_outstanding);
                document.getElementById('npa-ratio').textContent = s.risk_metrics.npa_ratio.toFixed(2) + '%';
                document.getElementById('default-rate').textContent = s.risk_metrics.default_rate.toFixed(2) + '%';
                document.getElementById('approval-rate').textContent = s.risk_metrics.approval_rate.toFixed(1) + '%';
            } catch (e) { /* retry on next tick */ }
        }

        function addFeedItem(ev) {
            const feed = document.getElementById('feed');
            const empty = feed.querySelector('.empty');
            if (empty) empty.remove();

            const item = document.createElement('div');
            item.className = 'item';
            const d = ev.data || {};
            const status = d.status || '';
            const amount = d.loan_amount ? inr.format(d.loan_amount) : '';
            item.innerHTML = '<span>' + ev.type.replaceAll('_', ' ') + ' ' + amount + '</span>' +
                '<span class="badge ' + status + '">' + (status || new Date(ev.timestamp).toLocaleTimeString()) + '</span>';
            feed.prepend(item);
            while (feed.children.length > 50) feed.lastChild.remove();
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws');
            const live = document.getElementById('live');

            ws.onopen = () => {
                live.classList.add('connected');
                document.getElementById('live-text').textContent = 'live';
                ws.send(JSON.stringify({ allEvents: true }));
            };
            ws.onmessage = (msg) => {
                const ev = JSON.parse(msg.data);
                if (!ev.type) return;
                addFeedItem(ev);
                loadSummary();
            };
            ws.onclose = () => {
                live.classList.remove('connected');
                document.getElementById('live-text').textContent = 'reconnecting';
                setTimeout(connect, 3000);
            };
        }

        loadSummary();
        setInterval(loadSummary, 30000);
        connect();
    </script>
</body>
</html>`

func dashboardHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}
