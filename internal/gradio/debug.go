package gradio

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/n0madic/go-gradiogate/internal/stream"
)

func (c *Connector) dumpRequest(req *http.Request, body []byte) {
	if c == nil || !c.debug || req == nil {
		return
	}
	dump, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		slog.Error("gradio.request.dump.failed", "error", err)
		return
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		dump = []byte(strings.ReplaceAll(string(dump), auth, "Bearer ***"))
	}
	if len(body) > 0 {
		dump = append(dump, body...)
	}
	c.writeDebugDumpBlock("BACKEND REQUEST", dump)
}

func (c *Connector) dumpResponse(resp *http.Response, body []byte) {
	if c == nil || !c.debug || resp == nil {
		return
	}
	c.writeDebugDumpBlock(fmt.Sprintf("BACKEND RESPONSE status=%d", resp.StatusCode), body)
}

func (c *Connector) dumpEvent(url string, evt *stream.Event) {
	if c == nil || !c.debug || evt == nil {
		return
	}
	c.writeDebugDumpBlock("BACKEND EVENT "+url, []byte("event: "+evt.Type+"\ndata: "+string(evt.Data)))
}

func (c *Connector) writeDebugDumpBlock(title string, data []byte) {
	c.dumpMu.Lock()
	defer c.dumpMu.Unlock()

	var sb strings.Builder
	sb.WriteString("===== " + strings.TrimSpace(title) + " BEGIN =====\n")
	if len(data) > 0 {
		sb.Write(data)
		if data[len(data)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("===== " + strings.TrimSpace(title) + " END =====\n")
	if _, err := os.Stderr.WriteString(sb.String()); err != nil {
		slog.Error("gradio.dump.write.failed", "title", title, "error", err)
	}
}
