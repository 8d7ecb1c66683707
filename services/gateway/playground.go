package gateway

import "net/http"

// playgroundHTML is the interactive console served on GET when the
// playground is enabled.
const playgroundHTML = `<!DOCTYPE html>
<html>
<head>
  <title>DroneGrid Convoy Tracking API</title>
  <style>
    body { font-family: monospace; background: #1b1b1d; color: #d4d4d4; margin: 2rem; }
    textarea { width: 100%; height: 10rem; background: #252528; color: #d4d4d4; border: 1px solid #444; padding: 0.5rem; }
    pre { background: #252528; border: 1px solid #444; padding: 0.5rem; white-space: pre-wrap; }
    button { padding: 0.4rem 1rem; margin-top: 0.5rem; }
  </style>
</head>
<body>
  <h1>DroneGrid Convoy Tracking API</h1>
  <p>POST /graphql with {"query", "variables", "operationName"}. Subscriptions at /graphql/ws.</p>
  <textarea id="query">{ health }</textarea>
  <textarea id="variables">{}</textarea>
  <button onclick="run()">Execute</button>
  <pre id="result"></pre>
  <script>
    async function run() {
      const body = {
        query: document.getElementById('query').value,
        variables: JSON.parse(document.getElementById('variables').value || '{}')
      };
      const res = await fetch('/graphql', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(body)
      });
      document.getElementById('result').textContent = JSON.stringify(await res.json(), null, 2);
    }
  </script>
</body>
</html>`

func (s *Service) handlePlayground(w http.ResponseWriter, _ *http.Request) {
	if !s.cfg.EnablePlayground {
		http.Error(w, "playground disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(playgroundHTML))
}
