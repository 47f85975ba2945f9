package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PromptSaver implements PromptHook to persist prompts and raw responses
// under Dir/prompt/<phase>.txt.
type PromptSaver struct {
	Dir string
	mu  sync.Mutex
}

// Before writes prompt and input JSON to Dir/prompt/<phase>.txt
func (p *PromptSaver) Before(ctx context.Context, phase, prompt string, input any) {
	var buf bytes.Buffer
	buf.WriteString("==== ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString(" ====\n")
	buf.WriteString(prompt)
	buf.WriteString("\n\n[INPUT JSON]\n")
	jb, _ := json.MarshalIndent(input, "", "  ")
	buf.Write(jb)
	buf.WriteString("\n\n")
	p.append(phase, buf.Bytes())
}

// After appends the raw response (or error) to the same file.
func (p *PromptSaver) After(ctx context.Context, phase string, raw json.RawMessage, err error) {
	var buf bytes.Buffer
	buf.WriteString("[RESPONSE]\n")
	if err != nil {
		buf.WriteString("ERROR: " + err.Error() + "\n\n")
	} else {
		buf.Write(raw)
		buf.WriteString("\n\n")
	}
	p.append(phase, buf.Bytes())
}

func (p *PromptSaver) append(phase string, b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := filepath.Join(p.Dir, "prompt")
	_ = os.MkdirAll(dir, 0o755)
	f, _ := os.OpenFile(filepath.Join(dir, fileSafe(phase)+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if f != nil {
		_, _ = f.Write(b)
		_ = f.Close()
	}
}

func fileSafe(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
