package liveview

import "html/template"

// indexTemplate renders the live-status page: a table refreshed in place
// by the websocket feed's JSON payloads, plus a scrolling recent-events
// log underneath.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>mapcore live status</title>
  <style>
    body { font-family: monospace; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #ccc; padding: 2px 8px; text-align: right; }
  </style>
</head>
<body>
  <h3>workers</h3>
  <table id="workers">
    <thead>
      <tr>
        <th>thread</th><th>total</th><th>valid</th><th>invalid</th>
        <th>invalid-run</th><th>since-update</th><th>best cost</th>
        <th>utilization</th><th>energy/macc</th>
      </tr>
    </thead>
    <tbody></tbody>
  </table>
  <h3>recent events</h3>
  <ul id="recent"></ul>
  <script>
    const proto = location.protocol === "https:" ? "wss:" : "ws:";
    const sock = new WebSocket(proto + "//" + location.host + "/ws");
    sock.onmessage = (msg) => {
      const update = JSON.parse(msg.data);
      const body = document.querySelector("#workers tbody");
      body.innerHTML = "";
      for (const s of (update.Snapshots || [])) {
        const row = document.createElement("tr");
        row.innerHTML =
          "<td>" + s.ThreadID + "</td>" +
          "<td>" + s.Total + "</td>" +
          "<td>" + s.Valid + "</td>" +
          "<td>" + s.Invalid + "</td>" +
          "<td>" + s.ConsecutiveInvalid + "</td>" +
          "<td>" + s.SinceLastUpdate + "</td>" +
          "<td>" + s.BestCost.toFixed(3) + "</td>" +
          "<td>" + (s.Utilization * 100).toFixed(2) + "%</td>" +
          "<td>" + s.EnergyPerMACC.toFixed(3) + "</td>";
        body.appendChild(row);
      }
      const recent = document.getElementById("recent");
      for (const e of (update.Recent || [])) {
        const li = document.createElement("li");
        li.textContent = "worker " + e.WorkerID + ": " + e.Kind + " " + (e.Reason || "");
        recent.prepend(li);
        while (recent.children.length > 20) {
          recent.removeChild(recent.lastChild);
        }
      }
    };
  </script>
</body>
</html>
`))
