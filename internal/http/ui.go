package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>PBPK Population Simulator</title>
  <style>
    @import url("https://fonts.googleapis.com/css?family=Open+Sans:300,400,600,700");

    :root {
      --brand: #0e5d8f;
      --brand-2: #0971b2;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --warn-bg: #fcf8e3;
      --warn-text: #8a6d3b;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    a { color: #428bca; text-decoration: none; }
    a:hover { color: #2a6496; text-decoration: underline; }

    header {
      background: linear-gradient(to right, var(--brand) 0, var(--brand-2) 100%);
      border-bottom: 1px solid #0b4e79;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin-right: auto;
      margin-left: auto;
      padding-left: 15px;
      padding-right: 15px;
      width: 100%;
      max-width: 1480px;
    }

    .header-inner {
      min-height: 70px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
    }

    .navbar-brand {
      color: #fff;
      font-size: 22px;
      font-weight: 300;
    }
    .navbar-brand strong { font-weight: 600; }
    .navbar-note {
      color: rgba(255, 255, 255, 0.88);
      font-size: 13px;
      font-weight: 300;
      text-align: right;
    }

    main { padding: 18px 0 32px; }

    .grid {
      display: grid;
      grid-template-columns: 380px 1fr;
      gap: 14px;
      align-items: start;
    }
    @media (max-width: 980px) { .grid { grid-template-columns: 1fr; } }

    .card {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      margin-bottom: 14px;
    }
    .card h2 {
      margin: 0;
      padding: 10px 12px;
      font-size: 15px;
      font-weight: 600;
      background: var(--head);
      border-bottom: 1px solid var(--line);
    }
    .card .body { padding: 12px; }

    label { display: block; font-size: 12px; color: var(--muted); margin: 8px 0 2px; }
    input, select {
      width: 100%;
      padding: 6px 8px;
      border: 1px solid var(--line);
      border-radius: 3px;
      font-size: 13px;
    }
    .row2 { display: grid; grid-template-columns: 1fr 1fr; gap: 8px; }
    .row3 { display: grid; grid-template-columns: 1fr 1fr 1fr; gap: 8px; }

    button {
      background: var(--brand);
      color: #fff;
      border: 0;
      border-radius: 3px;
      padding: 8px 14px;
      font-size: 13px;
      cursor: pointer;
      margin-top: 12px;
    }
    button:hover { background: var(--brand-2); }
    button:disabled { background: #b5c6d3; cursor: not-allowed; }
    button.secondary { background: #6c8296; }

    table { width: 100%; border-collapse: collapse; font-size: 12px; }
    th, td { padding: 5px 7px; border-bottom: 1px solid var(--line-soft); text-align: left; }
    th { background: var(--head); }

    .pill { display: inline-block; padding: 1px 8px; border-radius: 9px; font-size: 11px; }
    .pill.ok { background: var(--ok-bg); color: var(--ok-text); }
    .pill.warn { background: var(--warn-bg); color: var(--warn-text); }
    .pill.bad { background: var(--bad-bg); color: var(--bad-text); }

    canvas { width: 100%; height: auto; border: 1px solid var(--line-soft); border-radius: 3px; background: #fff; }

    .twin-grid {
      display: grid;
      grid-template-columns: repeat(auto-fill, minmax(150px, 1fr));
      gap: 8px;
      max-height: 300px;
      overflow-y: auto;
    }
    .twin {
      border: 1px solid var(--line-soft);
      border-radius: 3px;
      padding: 7px 9px;
      font-size: 11px;
    }
    .twin .name { font-weight: 600; font-size: 12px; }
    .twin .geno { color: var(--muted); }
    .twin.pm { border-left: 3px solid #a94442; }
    .twin.im { border-left: 3px solid #c09853; }
    .twin.nm { border-left: 3px solid #3c763d; }
    .twin.um { border-left: 3px solid #428bca; }

    .kv { display: grid; grid-template-columns: auto 1fr; gap: 2px 10px; font-size: 12px; }
    .kv dt { color: var(--muted); }
    .kv dd { margin: 0; font-weight: 600; }

    #safety-panel { border-left: 4px solid var(--line); padding-left: 10px; }
    #safety-panel.safe { border-left-color: #3c763d; }
    #safety-panel.warning { border-left-color: #c09853; }
    #safety-panel.danger { border-left-color: #a94442; }

    .muted { color: var(--muted); font-size: 12px; }
    .error-box {
      display: none;
      margin-bottom: 10px;
      padding: 8px 10px;
      background: var(--bad-bg);
      color: var(--bad-text);
      border: 1px solid #e4c1c1;
      border-radius: 3px;
      font-size: 13px;
    }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>PBPK</strong> Population Simulator</div>
      <div class="navbar-note">Virtual cohorts &middot; CYP pharmacogenomics &middot; 3-compartment PK model</div>
    </div>
  </header>

  <main>
    <div class="container">
      <div id="error-box" class="error-box"></div>
      <div class="grid">
        <div>
          <div class="card">
            <h2>Step 1 &middot; Virtual Population</h2>
            <div class="body">
              <div class="row2">
                <div><label>Subjects</label><input id="n-subjects" type="number" value="200" min="1" /></div>
                <div><label>Seed (0 = random)</label><input id="seed" type="number" value="0" min="0" /></div>
              </div>
              <div class="row3">
                <div><label>East Asian %</label><input id="eth-asian" type="number" value="34" min="0" /></div>
                <div><label>European %</label><input id="eth-european" type="number" value="33" min="0" /></div>
                <div><label>African %</label><input id="eth-african" type="number" value="33" min="0" /></div>
              </div>
              <div class="row3">
                <div><label>Age min</label><input id="age-min" type="number" value="18" min="1" /></div>
                <div><label>Age max</label><input id="age-max" type="number" value="65" min="1" /></div>
                <div><label>Male %</label><input id="gender-ratio" type="number" value="50" min="0" max="100" /></div>
              </div>
              <div class="row3">
                <div><label>Weight mean kg</label><input id="weight-mean" type="number" value="70" /></div>
                <div><label>Weight SD kg</label><input id="weight-sd" type="number" value="15" /></div>
                <div><label>Base CLint L/h</label><input id="base-clint" type="number" value="10" /></div>
              </div>
              <button id="btn-generate">Generate Population</button>
            </div>
          </div>

          <div class="card">
            <h2>Step 2 &middot; Drug &amp; Simulation</h2>
            <div class="body">
              <label>Preset</label>
              <select id="preset-select"><option value="">Custom drug</option></select>
              <label>Drug name</label>
              <input id="drug-name" type="text" value="Omeprazole" />
              <button id="btn-pubchem" class="secondary">Fetch from PubChem</button>
              <span id="pubchem-note" class="muted"></span>
              <div class="row2">
                <div><label>LogP</label><input id="log-p" type="number" step="0.01" value="2.23" /></div>
                <div><label>Fraction unbound</label><input id="f-u" type="number" step="0.01" value="0.05" /></div>
              </div>
              <div class="row2">
                <div><label>Vd L/kg</label><input id="v-d" type="number" step="0.01" value="0.3" /></div>
                <div><label>Ka 1/h</label><input id="k-a" type="number" step="0.1" value="1.5" /></div>
              </div>
              <div class="row2">
                <div><label>Dose mg</label><input id="dose" type="number" step="0.5" value="20" /></div>
                <div><label>Bioavailability</label><input id="bioavail" type="number" step="0.01" value="0.4" /></div>
              </div>
              <label>Toxic threshold ng/mL</label>
              <input id="toxic-threshold" type="number" value="2000" />
              <button id="btn-run" disabled>Run Simulation</button>
              <button id="btn-pdf" class="secondary" disabled>Download PDF Report</button>
            </div>
          </div>
        </div>

        <div>
          <div class="card">
            <h2>Population Summary</h2>
            <div class="body">
              <dl id="pop-summary" class="kv"><dt>Status</dt><dd>No population yet</dd></dl>
            </div>
          </div>

          <div class="card">
            <h2>Digital Twins</h2>
            <div class="body">
              <div id="twin-grid" class="twin-grid"><span class="muted">Generate a population to see individual subjects.</span></div>
            </div>
          </div>

          <div class="card">
            <h2>Plasma Concentration</h2>
            <div class="body">
              <canvas id="conc-chart" width="900" height="300"></canvas>
              <div class="muted">Mean curve with 5th&ndash;95th percentile band and up to 50 individual curves.</div>
            </div>
          </div>

          <div class="card">
            <h2>Cmax Distribution &amp; Safety</h2>
            <div class="body">
              <canvas id="cmax-chart" width="900" height="220"></canvas>
              <div id="safety-panel" style="margin-top:10px">
                <dl id="safety-summary" class="kv"><dt>Status</dt><dd>Run a simulation to analyze safety.</dd></dl>
              </div>
            </div>
          </div>

          <div class="card">
            <h2>Run History</h2>
            <div class="body">
              <table>
                <thead><tr><th>ID</th><th>Drug</th><th>Subjects</th><th>Cmax p50</th><th>Cmax p95</th><th>Severity</th><th>When</th></tr></thead>
                <tbody id="runs-body"><tr><td colspan="7" class="muted">No runs yet.</td></tr></tbody>
              </table>
            </div>
          </div>
        </div>
      </div>
    </div>
  </main>

  <script>
    let currentPopulation = null;
    let lastRequest = null;

    async function getJSON(url) {
      const res = await fetch(url);
      return res.json();
    }

    async function postJSON(url, body) {
      const res = await fetch(url, {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(body),
      });
      return res.json();
    }

    function num(id) { return parseFloat(document.getElementById(id).value) || 0; }
    function intval(id) { return parseInt(document.getElementById(id).value, 10) || 0; }

    function showError(msg) {
      const box = document.getElementById('error-box');
      if (!msg) { box.style.display = 'none'; return; }
      box.textContent = msg;
      box.style.display = 'block';
    }

    function severityPill(sev) {
      const cls = sev === 'danger' ? 'bad' : (sev === 'warning' ? 'warn' : 'ok');
      return '<span class="pill ' + cls + '">' + sev + '</span>';
    }

    async function generatePopulation() {
      showError('');
      const payload = {
        n_subjects: intval('n-subjects'),
        eth_asian: num('eth-asian'),
        eth_european: num('eth-european'),
        eth_african: num('eth-african'),
        age_min: intval('age-min'),
        age_max: intval('age-max'),
        gender_ratio: num('gender-ratio'),
        weight_mean: num('weight-mean'),
        weight_sd: num('weight-sd'),
        base_clint: num('base-clint'),
        seed: intval('seed'),
      };
      const res = await postJSON('/api/generate-population', payload);
      if (!res.success) { showError(res.error || 'population generation failed'); return; }

      currentPopulation = res.individuals;
      renderSummary(res.summary);
      renderTwins(res.individuals);
      document.getElementById('btn-run').disabled = false;
      document.getElementById('btn-pdf').disabled = false;
    }

    function renderSummary(s) {
      const d = s.demographics;
      const met = s.metabolizer_distribution || {};
      const rows = [
        ['Subjects', s.n_subjects],
        ['Age', d.age.mean.toFixed(1) + ' ± ' + d.age.sd.toFixed(1) + ' y'],
        ['Weight', d.weight.mean.toFixed(1) + ' ± ' + d.weight.sd.toFixed(1) + ' kg'],
        ['Gender', d.gender.male + ' M / ' + d.gender.female + ' F'],
        ['Activity score', s.activity_score.mean.toFixed(2) + ' ± ' + s.activity_score.sd.toFixed(2)],
      ];
      for (const [k, v] of Object.entries(met)) {
        if (v > 0) rows.push([k, v]);
      }
      document.getElementById('pop-summary').innerHTML =
        rows.map(([k, v]) => '<dt>' + k + '</dt><dd>' + v + '</dd>').join('');
    }

    function renderTwins(individuals) {
      const grid = document.getElementById('twin-grid');
      grid.innerHTML = individuals.slice(0, 60).map(ind =>
        '<div class="twin ' + (ind.metabolizer || '').toLowerCase() + '">' +
        '<div class="name">#' + ind.id + ' · ' + ind.gender + ' ' + ind.age + 'y</div>' +
        '<div>' + ind.weight + ' kg · BMI ' + ind.bmi + '</div>' +
        '<div>' + ind.ethnicity + '</div>' +
        '<div class="geno">2C19 ' + ind.cyp2c19 + ' · 3A4 ' + ind.cyp3a4 + '</div>' +
        '<div>' + ind.metabolizer + ' (AS ' + ind.activity_score + ')</div>' +
        '</div>'
      ).join('');
    }

    async function runSimulation() {
      showError('');
      if (!currentPopulation || currentPopulation.length === 0) {
        showError('generate a population first');
        return;
      }
      lastRequest = {
        drug_name: document.getElementById('drug-name').value,
        log_p: num('log-p'),
        f_u: num('f-u'),
        v_d: num('v-d'),
        k_a: num('k-a'),
        dose: num('dose'),
        bioavail: num('bioavail'),
        toxic_threshold: num('toxic-threshold'),
        population: currentPopulation,
      };
      const btn = document.getElementById('btn-run');
      btn.disabled = true;
      btn.textContent = 'Simulating…';
      try {
        const res = await postJSON('/api/run-simulation', lastRequest);
        if (!res.success) { showError(res.error || 'simulation failed'); return; }
        drawConcChart(res);
        drawCmaxHistogram(res.cmax_distribution);
        renderSafety(res.safety);
        loadRuns();
      } finally {
        btn.disabled = false;
        btn.textContent = 'Run Simulation';
      }
    }

    function drawConcChart(res) {
      const canvas = document.getElementById('conc-chart');
      const ctx = canvas.getContext('2d');
      const W = canvas.width, H = canvas.height, pad = 36;
      ctx.clearRect(0, 0, W, H);

      const time = res.time;
      const tMax = time[time.length - 1] || 1;
      let yMax = 0;
      for (const v of res.ci_upper) if (v > yMax) yMax = v;
      for (const curve of res.individual_curves) for (const v of curve) if (v > yMax) yMax = v;
      if (yMax <= 0) yMax = 1;

      const X = t => pad + (t / tMax) * (W - pad - 8);
      const Y = c => H - pad + 10 - (c / yMax) * (H - pad - 18);

      ctx.strokeStyle = '#ccc';
      ctx.beginPath();
      ctx.moveTo(pad, 8); ctx.lineTo(pad, H - pad + 10); ctx.lineTo(W - 8, H - pad + 10);
      ctx.stroke();

      ctx.fillStyle = '#888';
      ctx.font = '10px sans-serif';
      for (let i = 0; i <= 4; i++) {
        const t = tMax * i / 4;
        ctx.fillText(t.toFixed(0) + 'h', X(t) - 6, H - pad + 22);
        const c = yMax * i / 4;
        ctx.fillText(c.toFixed(0), 2, Y(c) + 3);
      }

      ctx.strokeStyle = 'rgba(14, 93, 143, 0.10)';
      for (const curve of res.individual_curves) {
        ctx.beginPath();
        curve.forEach((c, i) => i === 0 ? ctx.moveTo(X(time[i]), Y(c)) : ctx.lineTo(X(time[i]), Y(c)));
        ctx.stroke();
      }

      ctx.fillStyle = 'rgba(9, 113, 178, 0.15)';
      ctx.beginPath();
      res.ci_upper.forEach((c, i) => i === 0 ? ctx.moveTo(X(time[i]), Y(c)) : ctx.lineTo(X(time[i]), Y(c)));
      for (let i = time.length - 1; i >= 0; i--) ctx.lineTo(X(time[i]), Y(res.ci_lower[i]));
      ctx.closePath();
      ctx.fill();

      ctx.strokeStyle = '#0e5d8f';
      ctx.lineWidth = 2;
      ctx.beginPath();
      res.mean_concentration.forEach((c, i) => i === 0 ? ctx.moveTo(X(time[i]), Y(c)) : ctx.lineTo(X(time[i]), Y(c)));
      ctx.stroke();
      ctx.lineWidth = 1;
    }

    function drawCmaxHistogram(cmax) {
      const canvas = document.getElementById('cmax-chart');
      const ctx = canvas.getContext('2d');
      const W = canvas.width, H = canvas.height, pad = 36;
      ctx.clearRect(0, 0, W, H);
      if (!cmax || cmax.length === 0) return;

      const lo = Math.min(...cmax), hi = Math.max(...cmax);
      const nBins = 30;
      const width = (hi - lo) / nBins || 1;
      const bins = new Array(nBins).fill(0);
      for (const v of cmax) {
        let b = Math.floor((v - lo) / width);
        if (b >= nBins) b = nBins - 1;
        bins[b]++;
      }
      const maxBin = Math.max(...bins) || 1;

      ctx.strokeStyle = '#ccc';
      ctx.beginPath();
      ctx.moveTo(pad, 8); ctx.lineTo(pad, H - pad + 10); ctx.lineTo(W - 8, H - pad + 10);
      ctx.stroke();

      const bw = (W - pad - 12) / nBins;
      ctx.fillStyle = 'rgba(9, 113, 178, 0.7)';
      bins.forEach((n, i) => {
        const h = (n / maxBin) * (H - pad - 18);
        ctx.fillRect(pad + i * bw + 1, H - pad + 10 - h, bw - 2, h);
      });

      const threshold = num('toxic-threshold');
      if (threshold > lo && threshold < hi) {
        const x = pad + ((threshold - lo) / (hi - lo)) * (W - pad - 12);
        ctx.strokeStyle = '#a94442';
        ctx.setLineDash([4, 3]);
        ctx.beginPath();
        ctx.moveTo(x, 8); ctx.lineTo(x, H - pad + 10);
        ctx.stroke();
        ctx.setLineDash([]);
      }

      ctx.fillStyle = '#888';
      ctx.font = '10px sans-serif';
      ctx.fillText(lo.toFixed(0), pad, H - pad + 22);
      ctx.fillText(hi.toFixed(0) + ' ng/mL', W - 70, H - pad + 22);
    }

    function renderSafety(s) {
      const panel = document.getElementById('safety-panel');
      const dl = document.getElementById('safety-summary');
      if (!s) {
        panel.className = '';
        dl.innerHTML = '<dt>Status</dt><dd>No safety data.</dd>';
        return;
      }
      panel.className = s.severity;
      dl.innerHTML = [
        ['Severity', severityPill(s.severity)],
        ['Above threshold', s.n_exceeding_threshold + ' of ' + s.n_total + ' (' + s.percentage_exceeding.toFixed(1) + '%)'],
        ['Cmax max', s.cmax_max.toFixed(1) + ' ng/mL'],
        ['Cmax p95', s.cmax_95th_percentile.toFixed(1) + ' ng/mL'],
        ['Safety ratio', s.safety_ratio.toFixed(2)],
      ].map(([k, v]) => '<dt>' + k + '</dt><dd>' + v + '</dd>').join('');
    }

    async function fetchPubChem() {
      showError('');
      const name = document.getElementById('drug-name').value.trim();
      if (!name) { showError('enter a drug name first'); return; }
      const note = document.getElementById('pubchem-note');
      note.textContent = 'looking up…';
      try {
        const res = await getJSON('/api/fetch-pubchem?drug_name=' + encodeURIComponent(name));
        if (res.error) { note.textContent = ''; showError(res.error); return; }
        if (!res.found) { note.textContent = 'not found'; return; }
        if (res.log_p !== undefined) document.getElementById('log-p').value = res.log_p;
        note.textContent = 'MW ' + res.mw + (res.cached ? ' (cached)' : '');
      } catch (err) {
        note.textContent = '';
        showError('pubchem lookup failed');
      }
    }

    async function loadPresets() {
      try {
        const res = await getJSON('/api/v1/scenarios');
        const sel = document.getElementById('preset-select');
        for (const p of res.data) {
          const opt = document.createElement('option');
          opt.value = p.name;
          opt.textContent = p.name + ' (' + p.description + ')';
          sel.appendChild(opt);
        }
        sel.addEventListener('change', () => {
          const p = res.data.find(x => x.name === sel.value);
          if (!p) return;
          document.getElementById('drug-name').value = p.name;
          document.getElementById('log-p').value = p.log_p;
          document.getElementById('f-u').value = p.f_u;
          document.getElementById('v-d').value = p.v_d;
          document.getElementById('k-a').value = p.k_a;
          document.getElementById('dose').value = p.dose;
          document.getElementById('bioavail').value = p.f;
          document.getElementById('toxic-threshold').value = p.toxic_threshold;
        });
      } catch (err) { /* presets are optional */ }
    }

    async function loadRuns() {
      try {
        const res = await getJSON('/api/v1/runs?limit=15');
        const body = document.getElementById('runs-body');
        if (res.error || !res.data || res.data.length === 0) return;
        body.innerHTML = res.data.map(run =>
          '<tr><td>' + run.id + '</td><td>' + run.drug_name + '</td><td>' + run.n_subjects +
          '</td><td>' + run.cmax_p50.toFixed(1) + '</td><td>' + run.cmax_p95.toFixed(1) +
          '</td><td>' + severityPill(run.severity || 'safe') + '</td><td>' +
          new Date(run.created_at).toLocaleString() + '</td></tr>'
        ).join('');
      } catch (err) { /* history is optional */ }
    }

    async function downloadPDF() {
      if (!currentPopulation) return;
      const payload = lastRequest || {
        drug_name: document.getElementById('drug-name').value,
        log_p: num('log-p'),
        f_u: num('f-u'),
        v_d: num('v-d'),
        k_a: num('k-a'),
        dose: num('dose'),
        bioavail: num('bioavail'),
        toxic_threshold: num('toxic-threshold'),
        population: currentPopulation,
      };
      const res = await fetch('/api/v1/reports/simulation.pdf', {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(payload),
      });
      if (!res.ok) { showError('report generation failed'); return; }
      const blob = await res.blob();
      const url = URL.createObjectURL(blob);
      const a = document.createElement('a');
      a.href = url;
      a.download = 'simulation-report.pdf';
      a.click();
      URL.revokeObjectURL(url);
    }

    document.getElementById('btn-generate').addEventListener('click', generatePopulation);
    document.getElementById('btn-run').addEventListener('click', runSimulation);
    document.getElementById('btn-pubchem').addEventListener('click', fetchPubChem);
    document.getElementById('btn-pdf').addEventListener('click', downloadPDF);
    loadPresets();
    loadRuns();
  </script>
</body>
</html>
`
