// Command mock-backend runs a deterministic Chat Completions server
// for local development and testing of pipeline generation. It answers
// every request with canned pipeline code matching the requested
// source type, so the full generate-store-execute flow can be
// exercised without a real model backend.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid JSON"}}`, http.StatusBadRequest)
		return
	}

	prompt := lastUserMessage(req.Messages)
	code := pythonPipeline(prompt)
	if strings.Contains(prompt, "Generate a SQL pipeline") {
		code = sqlPipeline
	}

	resp := chatResponse{
		ID:     fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: code},
			FinishReason: "stop",
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
	slog.Info("served completion", "model", req.Model, "prompt_bytes", len(prompt))
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// pythonPipeline echoes the mount path named in the prompt so the
// generated code runs against the right file in the sandbox.
func pythonPipeline(prompt string) string {
	mountPath := "/data/data.csv"
	if i := strings.Index(prompt, "/data/"); i >= 0 {
		end := strings.IndexAny(prompt[i:], " \n'")
		if end > 0 {
			mountPath = prompt[i : i+end]
		}
	}
	return fmt.Sprintf(`import json
import pandas as pd

df = pd.read_csv('%s')
result = df.describe(include='all').to_dict()
print(json.dumps({"rows": len(df), "summary": str(result)[:500]}))
`, mountPath)
}

const sqlPipeline = `-- Aggregate rows per day
SELECT date_trunc('day', created_at) AS day, count(*) AS total
FROM events
GROUP BY 1
ORDER BY 1;
`
